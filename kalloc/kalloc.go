// Package kalloc implements the kernel's small-object allocator (C4): a
// slab-style bump allocator that carves fixed-size objects out of whole
// frames obtained from mem.Page_i, for kernel structures too small and too
// numerous to deserve a dedicated physical frame each (pipe buffers'
// bookkeeping, small VFS objects, and the like).
//
// There is no third-party small-object allocator anywhere in the example
// pack; every kernel-heap-shaped thing in the teacher (circbuf's lazy
// single-page buffers, mem's own frame free lists) is a hand-rolled
// free-list over mem.Page_i, so this follows the same idiom rather than
// reaching outside it.
package kalloc

import (
	"sync"

	"corekernel/mem"
)

// Allocator_t carves fixed-size objects of size Objsz out of frames
// obtained from Page_i, keeping a free list of unused object-sized slices.
type Allocator_t struct {
	sync.Mutex
	page  mem.Page_i
	objsz int
	free  [][]uint8
	// pinned keeps every frame this allocator has claimed alive for the
	// allocator's lifetime, since objects are never returned a whole
	// frame at a time.
	pinned []mem.Pa_t
}

// Init prepares an allocator for fixed-size objects of sz bytes, backed by
// page.
func (a *Allocator_t) Init(page mem.Page_i, sz int) {
	if sz <= 0 || sz > mem.PGSIZE {
		panic("bad object size")
	}
	a.page = page
	a.objsz = sz
}

// Objsz returns the configured object size.
func (a *Allocator_t) Objsz() int { return a.objsz }

// refill carves a fresh frame into objsz-sized chunks and pushes them onto
// the free list. Must be called with the lock held.
func (a *Allocator_t) refill() bool {
	pg, p_pg, ok := a.page.Refpg_new_nozero()
	if !ok {
		return false
	}
	a.page.Refup(p_pg)
	a.pinned = append(a.pinned, p_pg)
	bpg := mem.Pg2bytes(pg)[:]
	n := len(bpg) / a.objsz
	for i := 0; i < n; i++ {
		off := i * a.objsz
		a.free = append(a.free, bpg[off:off+a.objsz:off+a.objsz])
	}
	return true
}

// Alloc returns objsz zeroed bytes, refilling from the page allocator if
// the free list is empty. Returns nil if the system is out of memory.
func (a *Allocator_t) Alloc() []uint8 {
	a.Lock()
	defer a.Unlock()
	if len(a.free) == 0 {
		if !a.refill() {
			return nil
		}
	}
	b := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	for i := range b {
		b[i] = 0
	}
	return b
}

// Free returns a previously allocated object to the free list.
func (a *Allocator_t) Free(b []uint8) {
	if len(b) != a.objsz {
		panic("wrong size")
	}
	a.Lock()
	defer a.Unlock()
	a.free = append(a.free, b)
}

// Nframes reports how many whole frames this allocator has claimed from
// the underlying page allocator.
func (a *Allocator_t) Nframes() int {
	a.Lock()
	defer a.Unlock()
	return len(a.pinned)
}
