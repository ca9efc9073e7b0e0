// Package mem implements the physical frame directory (C2): a linear table
// indexed by frame number that tracks, for every physical frame, either how
// many user page tables currently map it (copy-on-write share count) or
// that it is owned by the kernel or permanently reserved.
//
// Two granularities are tracked side by side, matching the first region of
// a 32-bit address space being mapped with 4 MiB entries and the rest with
// 4 KiB entries (spec.md §4.1): frame numbers below Nlarge belong to the
// large-frame pool, the rest to the small-frame pool.
//
// Grounded on mem/mem.go and mem/dmap.go in the teacher pack. The teacher's
// version targets amd64 with a patched-runtime per-CPU free list
// (runtime.Get_phys/runtime.CPUHint/runtime.MAXCPUS) and 4-level paging;
// since this module runs under an unmodified toolchain and targets x86-32
// two-level paging, the frame directory here is backed by a single
// process-simulated physical arena (an ordinary Go byte slice standing in
// for "all of physical memory", in the same spirit as ufs/ufs.go's
// host-file-backed disk) and a single mutex replaces the per-CPU free
// lists (single-CPU, per spec.md §4.3's concurrency model). See DESIGN.md
// for the retarget rationale.
package mem

import (
	"fmt"
	"sync"
	"unsafe"

	"corekernel/defs"
	"corekernel/oommsg"
)

// PGSHIFT is the base-2 exponent of the small frame size.
const PGSHIFT uint = 12

// PGSIZE is the size of a small frame in bytes.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks the in-page offset of an address.
const PGOFFSET Pa_t = 0xfff

// PGMASK masks the frame number bits of an address.
const PGMASK Pa_t = ^(PGOFFSET)

// LGPGSHIFT is the base-2 exponent of the large (4 MiB) frame size.
const LGPGSHIFT uint = 22

// LGPGSIZE is the size of a large frame in bytes.
const LGPGSIZE int = 1 << LGPGSHIFT

// PTE flag bits, x86 two-level paging layout.
const (
	PTE_P   Pa_t = 1 << 0 // present
	PTE_W   Pa_t = 1 << 1 // writable
	PTE_U   Pa_t = 1 << 2 // user-accessible
	PTE_PWT Pa_t = 1 << 3
	PTE_PCD Pa_t = 1 << 4
	PTE_A   Pa_t = 1 << 5 // accessed
	PTE_D   Pa_t = 1 << 6 // dirty
	PTE_PS  Pa_t = 1 << 7 // page size (4 MiB entry in a page directory)
	// software-defined bits, free in both the x86 PDE and PTE formats
	PTE_COW    Pa_t = 1 << 9  // copy-on-write: write faults must split the frame
	PTE_WASCOW Pa_t = 1 << 10 // this mapping used to be CoW but has since been privatized
	PTE_ADDR        = PGMASK
)

// P_zeropg is the physical address a CoW-anonymous PTE points at before it
// is ever written: every private anonymous page starts out mapped
// read-only to the single shared Zeropg frame.
var P_zeropg Pa_t

// Pa_t is a 32-bit physical address; kept a fixed 4-byte width (rather than
// the host's uintptr) so that Pmap_t's 1024 entries add up to exactly one
// 4 KiB frame, matching the real x86 PDE/PTE layout this kernel models.
type Pa_t uint32

// Bytepg_t is a byte-addressed frame.
type Bytepg_t [PGSIZE]uint8

// Pg_t is a frame viewed as an array of page-table-entry-sized words.
type Pg_t [PGSIZE / 4]uint32

// Pmap_t is a page table or page directory: 1024 32-bit entries.
type Pmap_t [1024]Pa_t

// Unpin_i allows a VM region owner to be told a frame is being retired out
// from under it (used by the file-backed mapping unpin hook).
type Unpin_i interface {
	Unpin(Pa_t)
}

// Page_i abstracts frame allocation so that callers (vm, circbuf, the VFS
// buffer cache) do not depend on the global allocator directly, and so
// tests can substitute a small fake arena.
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Dmap(Pa_t) *Pg_t
	Refup(Pa_t)
	Refdown(Pa_t) bool
}

// share-count sentinels, per spec.md §4.1.
const (
	FrameFree     = 0
	FrameKernel   = -1
	FrameReserved = -2
)

// Pg2bytes reinterprets a frame as a byte array.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

// Bytepg2pg reinterprets a byte array as a frame.
func Bytepg2pg(pg *Bytepg_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(pg))
}

func pg2pmap(pg *Pg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}

func pg2pgn(p Pa_t, gran int) uint32 {
	return uint32(p >> uint(gran))
}

// frame_t is one entry of the physical frame directory.
type frame_t struct {
	share int32 // FrameFree / FrameKernel / FrameReserved / N>0 user mappings
	nexti uint32
}

// Physmem_t is the physical frame directory: Nlarge large frames followed
// by Nsmall small frames, each carrying a share count.
type Physmem_t struct {
	sync.Mutex
	arena []byte // simulated physical memory, PGSIZE-aligned

	small     []frame_t
	large     []frame_t
	smallfree uint32
	smalllen  int32
	largefree uint32
	largelen  int32

	Dmapinit bool
}

// Physmem is the global physical frame directory.
var Physmem = &Physmem_t{}

// Zeropg is reused to zero-fill freshly allocated frames.
var Zeropg = &Pg_t{}

// Phys_init reserves npages small frames and nlarge large frames backed by
// a simulated physical arena, and marks them all free. When npages > 0,
// one further small frame is reserved for the shared zero page, so all
// npages small frames stay available to Refpg_new.
func Phys_init(npages, nlarge int) *Physmem_t {
	phys := Physmem
	nsmall := npages
	if npages > 0 {
		nsmall++ // the zero page's frame
	}
	total := nsmall*PGSIZE + nlarge*LGPGSIZE
	phys.arena = make([]byte, total)

	phys.large = make([]frame_t, nlarge)
	phys.small = make([]frame_t, nsmall)

	phys.largefree = ^uint32(0)
	if nlarge > 0 {
		phys.largefree = 0
		for i := range phys.large {
			phys.large[i].share = FrameFree
			if i+1 < nlarge {
				phys.large[i].nexti = uint32(i + 1)
			} else {
				phys.large[i].nexti = ^uint32(0)
			}
		}
		phys.largelen = int32(nlarge)
	}

	phys.smallfree = ^uint32(0)
	if npages > 0 {
		phys.smallfree = 0
		for i := range phys.small {
			phys.small[i].share = FrameFree
			if i+1 < nsmall {
				phys.small[i].nexti = uint32(i + 1)
			} else {
				phys.small[i].nexti = ^uint32(0)
			}
		}
		phys.smalllen = int32(nsmall)
	}

	phys.Dmapinit = true

	if npages > 0 {
		zp, ok := phys.popfree(false)
		if !ok {
			panic("no frame for zero page")
		}
		P_zeropg = zp
		// one permanent reference so the zero page is never itself
		// freed; every read-only mapping onto it adds another.
		phys.Refup(zp)
	}

	fmt.Printf("mem: reserved %d small frames, %d large frames\n", npages, nlarge)
	return phys
}

func (phys *Physmem_t) smallBase() Pa_t { return Pa_t(len(phys.large) * LGPGSIZE) }

// framePa converts a (pool, index) pair to the physical address of that
// frame within the simulated arena.
func (phys *Physmem_t) framePa(idx uint32, large bool) Pa_t {
	if large {
		return Pa_t(idx) << LGPGSHIFT
	}
	return phys.smallBase() + Pa_t(idx)<<PGSHIFT
}

// locate returns the frame_t slot (and whether it is in the large pool)
// backing the physical address p.
func (phys *Physmem_t) locate(p Pa_t) (*frame_t, bool) {
	base := phys.smallBase()
	if p < base {
		idx := pg2pgn(p, int(LGPGSHIFT))
		return &phys.large[idx], true
	}
	idx := pg2pgn(p-base, int(PGSHIFT))
	return &phys.small[idx], false
}

// Refcnt returns a frame's current share count (which may be a sentinel).
func (phys *Physmem_t) Refcnt(p Pa_t) int {
	phys.Lock()
	defer phys.Unlock()
	f, _ := phys.locate(p)
	return int(f.share)
}

// Refup increments a frame's user-mapping share count, claiming it for one
// more PTE. A frame fresh off the free list reads a share count of zero
// (indistinguishable, by that field alone, from a free frame) until its
// first Refup claims it — the free list, not the share count, is what
// says whether a frame is available.
func (phys *Physmem_t) Refup(p Pa_t) {
	phys.Lock()
	defer phys.Unlock()
	f, _ := phys.locate(p)
	f.share++
	if f.share <= 0 {
		panic("wut")
	}
}

// Refdown decrements a frame's share count, freeing it when the count
// reaches zero, and reports whether the frame was freed.
func (phys *Physmem_t) Refdown(p Pa_t) bool {
	phys.Lock()
	defer phys.Unlock()
	f, large := phys.locate(p)
	f.share--
	if f.share < 0 {
		panic("wut")
	}
	if f.share != 0 {
		return false
	}
	phys.pushfree(p, large)
	return true
}

func (phys *Physmem_t) pushfree(p Pa_t, large bool) {
	f, _ := phys.locate(p)
	f.share = FrameFree
	if large {
		idx := pg2pgn(p, int(LGPGSHIFT))
		phys.large[idx].nexti = phys.largefree
		phys.largefree = idx
		phys.largelen++
		return
	}
	idx := pg2pgn(p-phys.smallBase(), int(PGSHIFT))
	phys.small[idx].nexti = phys.smallfree
	phys.smallfree = idx
	phys.smalllen++
}

// popfree removes a frame from the relevant free list without claiming it
// (its share count is left at zero, same as a free frame); the caller is
// responsible for Refup-ing it into the frame directory via Page_insert
// once it actually installs a mapping. This split mirrors spec.md §4.1's
// use_phys_mem/free_phys_mem pair: acquiring a frame and recording its
// first owner are separate steps.
func (phys *Physmem_t) popfree(large bool) (Pa_t, bool) {
	phys.Lock()
	defer phys.Unlock()
	if large {
		if phys.largefree == ^uint32(0) {
			return 0, false
		}
		idx := phys.largefree
		phys.largefree = phys.large[idx].nexti
		phys.largelen--
		p := phys.framePa(idx, true)
		return p, true
	}
	if phys.smallfree == ^uint32(0) {
		return 0, false
	}
	idx := phys.smallfree
	phys.smallfree = phys.small[idx].nexti
	phys.smalllen--
	p := phys.framePa(idx, false)
	return p, true
}

// Refpg_new allocates and zero-fills a small frame.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p, ok := phys.Refpg_new_nozero()
	if !ok {
		return nil, 0, false
	}
	*pg = *Zeropg
	return pg, p, true
}

// Refpg_new_nozero allocates a small frame without zeroing it.
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	p, ok := phys.popfree(false)
	if !ok {
		notifyOom(1)
		return nil, 0, false
	}
	return phys.Dmap(p), p, true
}

// notifyOom tells a reclaim daemon, if one is listening on oommsg.OomCh,
// that an allocation for need frames just failed. It never blocks: if
// nobody is receiving, the failure is simply reported to the caller as
// usual.
func notifyOom(need int) {
	select {
	case oommsg.OomCh <- oommsg.Oommsg_t{Need: need, Resume: make(chan bool, 1)}:
	default:
	}
}

// Largepg_new allocates and zero-fills a large (4 MiB) frame.
func (phys *Physmem_t) Largepg_new() (Pa_t, bool) {
	p, ok := phys.popfree(true)
	if !ok {
		notifyOom(LGPGSIZE / PGSIZE)
		return 0, false
	}
	bpg := phys.dmapBytes(p, LGPGSIZE)
	for i := range bpg {
		bpg[i] = 0
	}
	return p, true
}

// Pmap_new allocates a zeroed page table/directory.
func (phys *Physmem_t) Pmap_new() (*Pmap_t, Pa_t, bool) {
	pg, p, ok := phys.Refpg_new()
	if !ok {
		return nil, 0, false
	}
	return pg2pmap(pg), p, true
}

// Dec_pmap drops the reference Pmap_new's caller held on a page
// directory, freeing it once nothing maps it any longer. Vm_t.Uvmfree
// calls this once every user mapping under the directory has already been
// torn down by Page_remove.
func (phys *Physmem_t) Dec_pmap(p Pa_t) {
	phys.Refdown(p)
}

// Dmap returns the direct-mapped *Pg_t for a physical address by indexing
// straight into the simulated arena.
func (phys *Physmem_t) Dmap(p Pa_t) *Pg_t {
	return Bytepg2pg((*Bytepg_t)(unsafe.Pointer(&phys.dmapBytes(p, PGSIZE)[0])))
}

func (phys *Physmem_t) dmapBytes(p Pa_t, n int) []byte {
	off := int(util_rounddown(int(p), PGSIZE))
	if off+n > len(phys.arena) {
		panic("physical address out of simulated arena")
	}
	return phys.arena[off : off+n]
}

// util_rounddown avoids importing corekernel/util here, since util does
// not (and should not) depend back on mem.
func util_rounddown(v, b int) int {
	return v - v%b
}

// Dmap8 returns a byte slice mapped to p, truncated to start at p's
// in-page offset, mirroring the teacher's Dmap8 helper.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	pg := phys.Dmap(p)
	off := p & PGOFFSET
	bpg := Pg2bytes(pg)
	return bpg[off:]
}

// Pgcount reports (free small frames, free large frames) for diagnostics.
func (phys *Physmem_t) Pgcount() (int, int) {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.smalllen), int(phys.largelen)
}

// Errno-flavoured allocation wrapper used by callers that want a negated
// errno instead of a bool.
func (phys *Physmem_t) Refpg_new_err() (*Pg_t, Pa_t, defs.Err_t) {
	pg, p, ok := phys.Refpg_new()
	if !ok {
		return nil, 0, -defs.ENOMEM
	}
	return pg, p, 0
}
