// Vmregion_t/Vminfo_t describe the layout of a task's address space as a
// sorted list of non-overlapping virtual-memory regions, each carrying the
// permissions and backing-store type the page-fault handler needs to
// resolve a fault without consulting anything else.
//
// Grounded on the Vmregion_t/Vminfo_t contract inferred from vm/as.go's
// Vmregion.Lookup/insert/empty/Clear and Vminfo_t.Ptefor/Filepage/Perms/
// Mtype/Pgn/Pglen call sites in the teacher pack (no vmregion.go file was
// retrieved; the red-black-tree-flavoured region map the teacher likely
// used is replaced here with a sorted slice plus linear scan, adequate at
// the region counts a single task accumulates and simpler to read).
package vm

import (
	"sort"

	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/mem"
)

type mtype_t int

const (
	VANON  mtype_t = iota // private anonymous memory
	VFILE                 // file-backed memory, private or shared
	VSANON                // shared anonymous memory
)

// mfile_t describes the file backing a VFILE region.
type mfile_t struct {
	foff     int
	mfops    fdops.Fdops_i
	unpin    mem.Unpin_i
	mapcount int
	shared   bool
}

// Mfile_t is the file-mapping descriptor consulted by the page-fault
// handler for VFILE regions.
type Mfile_t = mfile_t

// Vminfo_t describes one virtual-memory region: [Pgn*PGSIZE,
// (Pgn+Pglen)*PGSIZE).
type Vminfo_t struct {
	Mtype mtype_t
	Pgn   uintptr
	Pglen int
	Perms uint
	file  struct {
		foff  int
		mfile *Mfile_t
	}
}

func (vmi *Vminfo_t) start() uintptr { return vmi.Pgn << PGSHIFT }
func (vmi *Vminfo_t) end() uintptr   { return (vmi.Pgn + uintptr(vmi.Pglen)) << PGSHIFT }

// Ptefor returns the page-table entry backing the faulting address va
// within this region, allocating intermediate page-table pages if needed.
func (vmi *Vminfo_t) Ptefor(pmap *mem.Pmap_t, va uintptr) (*mem.Pa_t, bool) {
	perms := mem.Pa_t(PTE_U)
	if vmi.Perms&uint(PTE_W) != 0 {
		perms |= PTE_W
	}
	pte, err := pmap_walk(pmap, int(va), perms)
	if err != 0 {
		return nil, false
	}
	return pte, true
}

// Filepage allocates a fresh frame and fills it by reading through the
// region's Fdops_i at the file offset implied by va; no cached frame is
// reused. p_bpg's reference is the caller's to release.
func (vmi *Vminfo_t) Filepage(va uintptr) (*mem.Pg_t, mem.Pa_t, defs.Err_t) {
	if vmi.file.mfile == nil {
		panic("not a file region")
	}
	pgn := (va - vmi.start()) >> PGSHIFT
	foff := vmi.file.foff + int(pgn)<<PGSHIFT
	pg, p_pg, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		return nil, 0, -defs.ENOMEM
	}
	bpg := mem.Pg2bytes(pg)[:]
	ub := &fakeFileReader{fops: vmi.file.mfile.mfops, off: foff}
	if _, err := ub.Read(bpg); err != 0 {
		mem.Physmem.Refdown(p_pg)
		return nil, 0, err
	}
	return pg, p_pg, 0
}

// fakeFileReader adapts an Fdops_i's Read into the "fill exactly one
// frame" shape Filepage needs, without requiring a full Userio_i.
type fakeFileReader struct {
	fops fdops.Fdops_i
	off  int
}

func (r *fakeFileReader) Read(dst []uint8) (int, defs.Err_t) {
	fb := &Fakeubuf_t{}
	fb.Fake_init(dst)
	return r.fops.Read(fb, r.off)
}

// Vmregion_t is the sorted set of a task's virtual-memory regions.
type Vmregion_t struct {
	regions []*Vminfo_t
}

// insert adds vmi to the region set, maintaining sorted order by start
// address. Overlap with an existing region is a programming fault: the
// caller (brk/mmap-equivalent) must have already carved out free space via
// empty().
func (vr *Vmregion_t) insert(vmi *Vminfo_t) {
	if vmi.Mtype == VFILE && vmi.file.mfile != nil && vmi.file.mfile.mfops != nil {
		vmi.file.mfile.mfops.Reopen()
	}
	i := sort.Search(len(vr.regions), func(i int) bool {
		return vr.regions[i].start() >= vmi.start()
	})
	for _, r := range vr.regions {
		if vmi.start() < r.end() && r.start() < vmi.end() {
			panic("overlapping vm region")
		}
	}
	vr.regions = append(vr.regions, nil)
	copy(vr.regions[i+1:], vr.regions[i:])
	vr.regions[i] = vmi
}

// Lookup returns the region containing va, if any.
func (vr *Vmregion_t) Lookup(va uintptr) (*Vminfo_t, bool) {
	for _, r := range vr.regions {
		if va >= r.start() && va < r.end() {
			return r, true
		}
	}
	return nil, false
}

// empty finds an unused virtual-address range of length l at or above
// start, returning its base address and the size of the gap found (which
// may exceed l).
func (vr *Vmregion_t) empty(start, l uintptr) (uintptr, uintptr) {
	cur := start
	for _, r := range vr.regions {
		if r.end() <= cur {
			continue
		}
		if r.start() >= cur && r.start()-cur >= l {
			return cur, r.start() - cur
		}
		cur = r.end()
	}
	return cur, ^uintptr(0) - cur
}

// Clear drops all regions, closing any file-backed mapping's descriptor.
func (vr *Vmregion_t) Clear() {
	for _, r := range vr.regions {
		if r.Mtype == VFILE && r.file.mfile != nil && r.file.mfile.mfops != nil {
			r.file.mfile.mfops.Close()
		}
	}
	vr.regions = nil
}
