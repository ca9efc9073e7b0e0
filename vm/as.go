// Package vm implements the virtual-memory manager (C3): per-task address
// spaces built on two-level x86 paging, the copy-on-write page-fault state
// machine, and the safe user/kernel copy primitives every syscall uses to
// cross the privilege boundary.
//
// Grounded on vm/as.go and vm/userbuf.go in the teacher pack. The teacher
// targets amd64 (4-level paging, per-CPU TLB shootdown broadcast via a
// patched runtime); this package retargets the same fault-handling and
// safe-copy algorithms to x86-32 two-level paging and a single-CPU
// scheduling model (spec.md §4.3), so Tlbshoot degrades to a local
// invalidate instead of a cross-CPU broadcast.
package vm

import (
	"sync"
	"time"

	"corekernel/bounds"
	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/mem"
	"corekernel/res"
	"corekernel/ustr"
	"corekernel/util"
)

// Vm_t represents a process address space. The embedded mutex protects
// Vmregion, Pmap and P_pmap against concurrent page-fault handling and
// syscall-driven mapping changes.
type Vm_t struct {
	sync.Mutex

	Vmregion Vmregion_t

	Pmap   *mem.Pmap_t
	P_pmap mem.Pa_t

	pgfltaken bool
}

// Lock_pmap acquires the address-space mutex and marks that page-table
// manipulation is in progress, so Lockassert_pmap can catch call paths
// that forgot to take the lock.
func (as *Vm_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

// Unlock_pmap releases the address-space mutex.
func (as *Vm_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

// Lockassert_pmap panics if the address-space mutex is not held.
func (as *Vm_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pgfl lock must be held")
	}
}

// Userdmap8_inner returns a kernel-addressable slice mapping the user
// virtual address va, faulting the page in first if necessary. When k2u is
// true the caller intends to write through this slice on the kernel's
// behalf (so a CoW page must be split first).
func (as *Vm_t) Userdmap8_inner(va int, k2u bool) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()

	voff := va & int(PGOFFSET)
	uva := uintptr(va)
	vmi, ok := as.Vmregion.Lookup(uva)
	if !ok {
		return nil, -defs.EFAULT
	}
	pte, ok := vmi.Ptefor(as.Pmap, uva)
	if !ok {
		return nil, -defs.ENOMEM
	}
	ecode := mem.Pa_t(PTE_U)
	needfault := true
	isp := *pte&PTE_P != 0
	if k2u {
		ecode |= PTE_W
		iscow := *pte&PTE_COW != 0
		if isp && !iscow {
			needfault = false
		}
	} else if isp {
		needfault = false
	}

	if needfault {
		if err := Sys_pgfault(as, vmi, uva, ecode); err != 0 {
			return nil, err
		}
	}

	pg := mem.Physmem.Dmap(*pte & PTE_ADDR)
	bpg := mem.Pg2bytes(pg)
	return bpg[voff:], 0
}

func (as *Vm_t) _userdmap8(va int, k2u bool) ([]uint8, defs.Err_t) {
	as.Lock_pmap()
	ret, err := as.Userdmap8_inner(va, k2u)
	as.Unlock_pmap()
	return ret, err
}

// Userdmap8r maps the user address va for reading.
func (as *Vm_t) Userdmap8r(va int) ([]uint8, defs.Err_t) {
	return as._userdmap8(va, false)
}

func (as *Vm_t) usermapped(va, n int) bool {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	_, ok := as.Vmregion.Lookup(uintptr(va))
	return ok
}

// Userreadn reads n (<= 8) bytes from user address va as a little-endian
// integer.
func (as *Vm_t) Userreadn(va, n int) (int, defs.Err_t) {
	as.Lock_pmap()
	a, b := as.userreadn_inner(va, n)
	as.Unlock_pmap()
	return a, b
}

func (as *Vm_t) userreadn_inner(va, n int) (int, defs.Err_t) {
	as.Lockassert_pmap()
	if n > 8 {
		panic("large n")
	}
	var ret int
	var src []uint8
	var err defs.Err_t
	for i := 0; i < n; i += len(src) {
		src, err = as.Userdmap8_inner(va+i, false)
		if err != 0 {
			return 0, err
		}
		l := n - i
		if len(src) < l {
			l = len(src)
		}
		v := util.Readn(src, l, 0)
		ret |= v << (8 * uint(i))
	}
	return ret, 0
}

// Userwriten writes the low n (<= 8) bytes of val to user address va.
func (as *Vm_t) Userwriten(va, n, val int) defs.Err_t {
	if n > 8 {
		panic("large n")
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	var dst []uint8
	for i := 0; i < n; i += len(dst) {
		v := val >> (8 * uint(i))
		t, err := as.Userdmap8_inner(va+i, true)
		dst = t
		if err != 0 {
			return err
		}
		util.Writen(dst, n-i, 0, v)
	}
	return 0
}

// Userstr copies a NUL-terminated string from user memory, up to lenmax
// bytes, returning ENAMETOOLONG if no terminator is found in time.
func (as *Vm_t) Userstr(uva int, lenmax int) (ustr.Ustr, defs.Err_t) {
	if lenmax < 0 {
		return nil, 0
	}
	as.Lock_pmap()
	i := 0
	s := ustr.MkUstr()
	for {
		str, err := as.Userdmap8_inner(uva+i, false)
		if err != 0 {
			as.Unlock_pmap()
			return s, err
		}
		for j, c := range str {
			if c == 0 {
				s = append(s, str[:j]...)
				as.Unlock_pmap()
				return s, 0
			}
		}
		s = append(s, str...)
		i += len(str)
		if len(s) >= lenmax {
			as.Unlock_pmap()
			return nil, -defs.ENAMETOOLONG
		}
	}
}

// Usertimespec reads a (seconds, nanoseconds) pair from user memory.
func (as *Vm_t) Usertimespec(va int) (time.Duration, time.Time, defs.Err_t) {
	var zt time.Time
	secs, err := as.Userreadn(va, 8)
	if err != 0 {
		return 0, zt, err
	}
	nsecs, err := as.Userreadn(va+8, 8)
	if err != 0 {
		return 0, zt, err
	}
	if secs < 0 || nsecs < 0 {
		return 0, zt, -defs.EINVAL
	}
	tot := time.Duration(secs)*time.Second + time.Duration(nsecs)*time.Nanosecond
	t := time.Unix(int64(secs), int64(nsecs))
	return tot, t, 0
}

// K2user copies src into the user address space starting at uva.
func (as *Vm_t) K2user(src []uint8, uva int) defs.Err_t {
	as.Lock_pmap()
	ret := as.K2user_inner(src, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) K2user_inner(src []uint8, uva int) defs.Err_t {
	as.Lockassert_pmap()
	cnt := 0
	l := len(src)
	for cnt != l {
		gimme := bounds.Bounds(bounds.B_ASPACE_T_K2USER_INNER)
		if !res.Resadd_noblock(gimme) {
			return -defs.ENOHEAP
		}
		dst, err := as.Userdmap8_inner(uva+cnt, true)
		if err != 0 {
			return err
		}
		ub := len(src)
		if ub > len(dst) {
			ub = len(dst)
		}
		copy(dst, src)
		src = src[ub:]
		cnt += ub
	}
	return 0
}

// User2k copies len(dst) bytes from user address uva into dst.
func (as *Vm_t) User2k(dst []uint8, uva int) defs.Err_t {
	as.Lock_pmap()
	ret := as.User2k_inner(dst, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) User2k_inner(dst []uint8, uva int) defs.Err_t {
	as.Lockassert_pmap()
	cnt := 0
	for len(dst) != 0 {
		gimme := bounds.Bounds(bounds.B_ASPACE_T_USER2K_INNER)
		if !res.Resadd_noblock(gimme) {
			return -defs.ENOHEAP
		}
		src, err := as.Userdmap8_inner(uva+cnt, false)
		if err != 0 {
			return err
		}
		did := copy(dst, src)
		dst = dst[did:]
		cnt += did
	}
	return 0
}

// Unusedva_inner finds an unused virtual range of len bytes at or above
// startva, clamped to the user portion of the address space.
func (as *Vm_t) Unusedva_inner(startva, length int) int {
	as.Lockassert_pmap()
	if length < 0 {
		panic("weird len")
	}
	startva = util.Rounddown(startva, mem.PGSIZE)
	if startva < USERMIN {
		startva = USERMIN
	}
	_ret, _l := as.Vmregion.empty(uintptr(startva), uintptr(length))
	ret := int(_ret)
	l := int(_l)
	if startva > ret && startva < ret+l {
		ret = startva
	}
	return ret
}

// Tlbshoot invalidates pgcount pages starting at startva. The teacher's
// amd64 build broadcasts shootdowns to every CPU with this pmap loaded;
// under this kernel's single-CPU model (spec.md §4.3) there is only ever
// one CPU to invalidate, namely this one, so the hardware invlpg the real
// kernel would issue has no Go-level counterpart to simulate here.
func (as *Vm_t) Tlbshoot(startva uintptr, pgcount int) {
	if pgcount == 0 {
		return
	}
	as.Lockassert_pmap()
}

// Sys_pgfault resolves a page fault for address space as at faultaddr with
// hardware error-code bits ecode, implementing the copy-on-write split:
// a write fault on a frame shared by more than one mapping allocates a
// fresh frame and copies; a write fault on an anonymous frame mapped
// exactly once simply flips the PTE back to writable.
func Sys_pgfault(as *Vm_t, vmi *Vminfo_t, faultaddr uintptr, ecode mem.Pa_t) defs.Err_t {
	isguard := vmi.Perms == 0
	iswrite := ecode&PTE_W != 0
	writeok := vmi.Perms&uint(PTE_W) != 0
	if isguard || (iswrite && !writeok) {
		return -defs.EFAULT
	}
	if ecode&PTE_U == 0 {
		panic("kernel page fault")
	}
	if vmi.Mtype == VSANON {
		panic("shared anon pages should always be mapped")
	}

	pte, ok := vmi.Ptefor(as.Pmap, faultaddr)
	if !ok {
		return -defs.ENOMEM
	}
	if (iswrite && *pte&PTE_WASCOW != 0) || (!iswrite && *pte&PTE_P != 0) {
		// two threads raced on the same fault; the other one won.
		return 0
	}

	var p_pg mem.Pa_t
	isblockpage := false
	perms := PTE_U | PTE_P
	isempty := true

	if vmi.Mtype == VFILE && vmi.file.mfile != nil && vmi.file.mfile.shared {
		var err defs.Err_t
		_, p_pg, err = vmi.Filepage(faultaddr)
		if err != 0 {
			return err
		}
		isblockpage = true
		if vmi.Perms&uint(PTE_W) != 0 {
			perms |= PTE_W
		}
	} else if iswrite {
		if *pte&PTE_P != 0 && *pte&PTE_COW == 0 {
			panic("bad state")
		}
		var pgsrc *mem.Pg_t
		cow := *pte&PTE_COW != 0
		if cow {
			phys := *pte & PTE_ADDR
			if vmi.Mtype == VANON && mem.Physmem.Refcnt(phys) == 1 && phys != mem.P_zeropg {
				tmp := *pte &^ PTE_COW
				tmp |= PTE_W | PTE_WASCOW
				*pte = tmp
				as.Tlbshoot(faultaddr, 1)
				return 0
			}
			pgsrc = mem.Physmem.Dmap(phys)
			isempty = false
		} else {
			if *pte != 0 {
				panic("no")
			}
			switch vmi.Mtype {
			case VANON:
				pgsrc = mem.Zeropg
			case VFILE:
				var p_bpg mem.Pa_t
				var err defs.Err_t
				pgsrc, p_bpg, err = vmi.Filepage(faultaddr)
				if err != 0 {
					return err
				}
				defer mem.Physmem.Refdown(p_bpg)
			default:
				panic("wut")
			}
		}
		pg, np, ok := mem.Physmem.Refpg_new_nozero()
		if !ok {
			return -defs.ENOMEM
		}
		*pg = *pgsrc
		p_pg = np
		perms |= PTE_WASCOW | PTE_W
	} else {
		if *pte != 0 {
			panic("must be 0")
		}
		switch vmi.Mtype {
		case VANON:
			p_pg = mem.P_zeropg
		case VFILE:
			var err defs.Err_t
			_, p_pg, err = vmi.Filepage(faultaddr)
			if err != 0 {
				return err
			}
			isblockpage = true
		default:
			panic("wut")
		}
		if vmi.Perms&uint(PTE_W) != 0 {
			perms |= PTE_COW
		}
	}
	if perms&PTE_W != 0 {
		perms |= PTE_D
	}
	perms |= PTE_A

	var tshoot, inserted bool
	if isblockpage {
		tshoot, inserted = as.Blockpage_insert(int(faultaddr), p_pg, perms, isempty, pte)
	} else {
		tshoot, inserted = as.Page_insert(int(faultaddr), p_pg, perms, isempty, pte)
	}
	if !inserted {
		mem.Physmem.Refdown(p_pg)
		return -defs.ENOMEM
	}
	if tshoot {
		as.Tlbshoot(faultaddr, 1)
	}
	return 0
}

// Page_insert maps p_pg at va with perms, bumping p_pg's reference count.
// It reports whether a present mapping was replaced (needing a TLB flush)
// and whether the insertion succeeded.
func (as *Vm_t) Page_insert(va int, p_pg mem.Pa_t, perms mem.Pa_t, vempty bool, pte *mem.Pa_t) (bool, bool) {
	return as._page_insert(va, p_pg, perms, vempty, true, pte)
}

// Blockpage_insert is Page_insert without incrementing p_pg's reference
// count, for block-cache-owned frames the VFS already accounts for.
func (as *Vm_t) Blockpage_insert(va int, p_pg mem.Pa_t, perms mem.Pa_t, vempty bool, pte *mem.Pa_t) (bool, bool) {
	return as._page_insert(va, p_pg, perms, vempty, false, pte)
}

func (as *Vm_t) _page_insert(va int, p_pg mem.Pa_t, perms mem.Pa_t, vempty, refup bool, pte *mem.Pa_t) (bool, bool) {
	as.Lockassert_pmap()
	if refup {
		mem.Physmem.Refup(p_pg)
	}
	if pte == nil {
		var err defs.Err_t
		pte, err = pmap_walk(as.Pmap, va, PTE_U|PTE_W)
		if err != 0 {
			return false, false
		}
	}
	ninval := false
	var p_old mem.Pa_t
	if *pte&PTE_P != 0 {
		if vempty {
			panic("pte not empty")
		}
		if *pte&PTE_U == 0 {
			panic("replacing kernel page")
		}
		ninval = true
		p_old = *pte & PTE_ADDR
	}
	*pte = p_pg | perms | PTE_P
	if ninval {
		mem.Physmem.Refdown(p_old)
	}
	return ninval, true
}

// Page_remove unmaps va, reporting whether a mapping was removed.
func (as *Vm_t) Page_remove(va int) bool {
	as.Lockassert_pmap()
	remmed := false
	pte := Pmap_lookup(as.Pmap, va)
	if pte != nil && *pte&PTE_P != 0 {
		if *pte&PTE_U == 0 {
			panic("removing kernel page")
		}
		p_old := *pte & PTE_ADDR
		mem.Physmem.Refdown(p_old)
		*pte = 0
		remmed = true
	}
	return remmed
}

// Pgfault handles a page fault at fa with hardware error code ecode,
// acquiring the address-space lock itself.
func (as *Vm_t) Pgfault(tid defs.Tid_t, fa, ecode uintptr) defs.Err_t {
	as.Lock_pmap()
	vmi, ok := as.Vmregion.Lookup(fa)
	if !ok {
		as.Unlock_pmap()
		return -defs.EFAULT
	}
	ret := Sys_pgfault(as, vmi, fa, mem.Pa_t(ecode))
	as.Unlock_pmap()
	return ret
}

// Uvmfree releases every user mapping and, once no CPU references it any
// longer, the page directory itself.
func (as *Vm_t) Uvmfree() {
	as.Lock_pmap()
	for _, r := range as.Vmregion.regions {
		for pgn := 0; pgn < r.Pglen; pgn++ {
			va := int(r.start()) + pgn*mem.PGSIZE
			as.Page_remove(va)
		}
	}
	as.Vmregion.Clear()
	as.Unlock_pmap()
	mem.Physmem.Dec_pmap(as.P_pmap)
}

// Vmadd_anon creates a private anonymous mapping at [start, start+len).
func (as *Vm_t) Vmadd_anon(start, length int, perms mem.Pa_t) {
	vmi := as._mkvmi(VANON, start, length, perms, 0, nil, nil)
	as.Vmregion.insert(vmi)
}

// Vmadd_file maps a region backed by fops starting at file offset foff.
func (as *Vm_t) Vmadd_file(start, length int, perms mem.Pa_t, fops fdops.Fdops_i, foff int) {
	vmi := as._mkvmi(VFILE, start, length, perms, foff, fops, nil)
	as.Vmregion.insert(vmi)
}

// Vmadd_shareanon inserts a shared anonymous mapping.
func (as *Vm_t) Vmadd_shareanon(start, length int, perms mem.Pa_t) {
	vmi := as._mkvmi(VSANON, start, length, perms, 0, nil, nil)
	as.Vmregion.insert(vmi)
}

// Vmadd_sharefile creates a shared file-backed mapping; unpin is invoked
// when a mapped frame is retired out from under the region.
func (as *Vm_t) Vmadd_sharefile(start, length int, perms mem.Pa_t, fops fdops.Fdops_i, foff int, unpin mem.Unpin_i) {
	vmi := as._mkvmi(VFILE, start, length, perms, foff, fops, unpin)
	as.Vmregion.insert(vmi)
}

func (as *Vm_t) _mkvmi(mt mtype_t, start, length int, perms mem.Pa_t, foff int, fops fdops.Fdops_i, unpin mem.Unpin_i) *Vminfo_t {
	if length <= 0 {
		panic("bad vmi len")
	}
	if mem.Pa_t(start|length)&PGOFFSET != 0 {
		panic("start and len must be aligned")
	}
	ret := &Vminfo_t{}
	pgn := uintptr(start) >> PGSHIFT
	pglen := util.Roundup(length, mem.PGSIZE) >> PGSHIFT
	ret.Mtype = mt
	ret.Pgn = pgn
	ret.Pglen = pglen
	ret.Perms = uint(perms)
	if mt == VFILE {
		ret.file.foff = foff
		ret.file.mfile = &Mfile_t{
			foff:     foff,
			mfops:    fops,
			unpin:    unpin,
			mapcount: pglen,
			shared:   unpin != nil,
		}
	}
	return ret
}

// Mkuserbuf allocates a Userbuf_t referencing [userva, userva+len) in as.
func (as *Vm_t) Mkuserbuf(userva, length int) *Userbuf_t {
	ret := &Userbuf_t{}
	ret.ub_init(as, userva, length)
	return ret
}
