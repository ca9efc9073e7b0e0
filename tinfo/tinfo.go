// Package tinfo tracks per-thread kill/sleep state and the identity of
// whichever thread is currently executing on the (single, simulated) CPU.
package tinfo

import (
	"sync"

	"corekernel/defs"
)

// Tnote_t stores per-thread state consulted by the scheduler and signal
// delivery path.
type Tnote_t struct {
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool
	// protects Killed, Killnaps.Cond and Killnaps.Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

// Threadinfo_t tracks all thread notes.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

// current holds the thread note of whichever task the single simulated CPU
// is presently executing. The teacher's version stashes this pointer in an
// extra field of the runtime's per-goroutine g struct (runtime.Gptr/
// Setgptr), a hook into its patched Go runtime; this module has no such
// hook and no real per-CPU hardware to key off of, so it instead tracks
// the one currently-running task directly, which is exactly equivalent
// under spec.md's single-CPU scheduling model (only one task is ever
// "current" at a time, so a single guarded pointer has the same meaning
// as a true per-CPU/per-thread slot would).
var (
	curmu sync.Mutex
	cur   *Tnote_t
)

// Current returns the current thread note.
func Current() *Tnote_t {
	curmu.Lock()
	defer curmu.Unlock()
	if cur == nil {
		panic("nuts")
	}
	return cur
}

// CurrentOrNil returns the current thread note, or nil if no task is
// presently scheduled in (e.g. before the first Schedule call, or while
// the dispatcher itself runs between tasks).
func CurrentOrNil() *Tnote_t {
	curmu.Lock()
	defer curmu.Unlock()
	return cur
}

// SetCurrent installs p as the current thread note. The scheduler calls
// this exactly once per context switch, immediately before transferring
// control to p's task.
func SetCurrent(p *Tnote_t) {
	if p == nil {
		panic("nuts")
	}
	curmu.Lock()
	defer curmu.Unlock()
	if cur != nil {
		panic("nuts")
	}
	cur = p
}

// ClearCurrent removes the current thread note, called by the scheduler
// immediately after a task yields or blocks.
func ClearCurrent() {
	curmu.Lock()
	defer curmu.Unlock()
	if cur == nil {
		panic("nuts")
	}
	cur = nil
}
