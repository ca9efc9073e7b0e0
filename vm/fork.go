package vm

import (
	"corekernel/defs"
	"corekernel/mem"
)

// Fork duplicates an address space for do_clone (spec.md §4.6): every
// present mapping is shared between parent and child by bumping its frame's
// refcount, with writable small-page mappings flipped read-only and marked
// PTE_COW in both directories -- the standard copy-on-write fork. Large
// (4 MiB) mappings are shared whole, same as the teacher's CoW scheme
// applied one level higher. A subsequent write fault in either address
// space resolves through Sys_pgfault exactly as any other CoW fault would.
//
// Grounded on the CoW state machine already present in Sys_pgfault
// (as.go); fork is the other half of that state machine (the "how a page
// becomes shared" step, as opposed to "how a shared page is split").
func (as *Vm_t) Fork() (*Vm_t, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	npmap, p_pmap, ok := mem.Physmem.Pmap_new()
	if !ok {
		return nil, -defs.ENOMEM
	}
	child := &Vm_t{Pmap: npmap, P_pmap: p_pmap}

	for i := 0; i < 1024; i++ {
		pde := as.Pmap[i]
		if pde&PTE_P == 0 {
			continue
		}
		if pde&PTE_PS != 0 {
			pa := pde & PTE_ADDR
			mem.Physmem.Refup(pa)
			cow := pde
			if cow&PTE_W != 0 {
				cow = (cow &^ PTE_W) | PTE_COW
			}
			as.Pmap[i] = cow
			child.Pmap[i] = cow
			continue
		}

		parentPt := pmapAt(pde & PTE_ADDR)
		_, p_childpt, ok := mem.Physmem.Pmap_new()
		if !ok {
			return nil, -defs.ENOMEM
		}
		childPt := pmapAt(p_childpt)

		for j := 0; j < 1024; j++ {
			pte := parentPt[j]
			if pte&PTE_P == 0 {
				continue
			}
			mem.Physmem.Refup(pte & PTE_ADDR)
			if pte&PTE_W != 0 {
				pte = (pte &^ PTE_W) | PTE_COW
			}
			parentPt[j] = pte
			childPt[j] = pte
		}
		child.Pmap[i] = (p_childpt & PTE_ADDR) | (pde &^ PTE_ADDR)
	}

	for _, r := range as.Vmregion.regions {
		nr := *r
		if nr.Mtype == VFILE && nr.file.mfile != nil {
			nf := *nr.file.mfile
			if nf.mfops != nil {
				nf.mfops.Reopen()
			}
			nr.file.mfile = &nf
		}
		child.Vmregion.regions = append(child.Vmregion.regions, &nr)
	}

	return child, 0
}
