package vm

import (
	"unsafe"

	"corekernel/defs"
	"corekernel/mem"
)

// PGSHIFT/PGOFFSET mirror package mem's; re-exported under the short names
// the rest of this package uses.
const (
	PGSHIFT  = mem.PGSHIFT
	PGOFFSET = mem.PGOFFSET
)

const (
	PTE_P      = mem.PTE_P
	PTE_W      = mem.PTE_W
	PTE_U      = mem.PTE_U
	PTE_A      = mem.PTE_A
	PTE_D      = mem.PTE_D
	PTE_PS     = mem.PTE_PS
	PTE_PCD    = mem.PTE_PCD
	PTE_COW    = mem.PTE_COW
	PTE_WASCOW = mem.PTE_WASCOW
	PTE_ADDR   = mem.PTE_ADDR
)

// pdeidx/pteidx split a 32-bit virtual address into its page-directory and
// page-table indices: the x86 two-level layout reserves 10 bits for the
// directory index, 10 for the table index, and the low 12 bits for the
// in-page offset.
func pdeidx(va int) int { return (va >> 22) & 0x3ff }
func pteidx(va int) int { return (va >> 12) & 0x3ff }

// pmapAt reinterprets the frame backing a page table/directory as a
// Pmap_t. Pg_t and Pmap_t have identical 4096-byte, 1024-times-4-byte
// layouts, so this is a plain reinterpret cast, not an access to raw
// hardware memory.
func pmapAt(p mem.Pa_t) *mem.Pmap_t {
	pg := mem.Physmem.Dmap(p)
	return (*mem.Pmap_t)(unsafe.Pointer(pg))
}

// pmap_walk returns the page-table entry for va within pmap, allocating an
// intermediate page-table page (with perms on its directory entry) if one
// is not already present. It panics if the directory entry is a 4 MiB
// large-page mapping, since those have no page table to walk into.
func pmap_walk(pmap *mem.Pmap_t, va int, perms mem.Pa_t) (*mem.Pa_t, defs.Err_t) {
	pde := &pmap[pdeidx(va)]
	if *pde&PTE_PS != 0 {
		panic("pmap_walk into a large page mapping")
	}
	var pt *mem.Pmap_t
	if *pde&PTE_P == 0 {
		_, p_pt, ok := mem.Physmem.Pmap_new()
		if !ok {
			return nil, -defs.ENOMEM
		}
		*pde = p_pt | perms | PTE_P
		pt = pmapAt(p_pt)
	} else {
		pt = pmapAt(*pde & PTE_ADDR)
	}
	return &pt[pteidx(va)], 0
}

// Pmap_lookup returns the page-table (or, for a 4 MiB mapping, page-
// directory) entry for va, or nil if no intermediate page table is present
// at that directory index.
func Pmap_lookup(pmap *mem.Pmap_t, va int) *mem.Pa_t {
	pde := &pmap[pdeidx(va)]
	if *pde&PTE_P == 0 {
		return nil
	}
	if *pde&PTE_PS != 0 {
		return pde
	}
	pt := pmapAt(*pde & PTE_ADDR)
	return &pt[pteidx(va)]
}
