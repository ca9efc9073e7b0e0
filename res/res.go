// Package res bounds how much kernel heap a single system call may consume
// while it makes slow, page-at-a-time progress copying to or from user
// memory (Vm_t.K2user, Vm_t.User2k, Userbuf_t, Useriovec_t). Each such loop
// must periodically ask permission to keep going; res either grants it
// immediately or blocks until the system-wide budget frees up, so that one
// runaway read(2) cannot starve every other task's kernel allocations.
//
// Grounded on res/res.go in the teacher pack (present only as an empty
// placeholder module there; the Resadd/Resadd_noblock contract is inferred
// from its call sites in vm/as.go and vm/userbuf.go, which pass a
// bounds.Bounds_t tag and expect a bool "got it" result).
package res

import (
	"sync"

	"corekernel/bounds"
)

// defaultChunk is how much budget a single Resadd grants per call; it is
// sized so that a K2user/User2k inner loop makes a page of progress before
// having to ask again.
const defaultChunk = 4096

// limiter tracks the system-wide kernel heap budget available to slow user-copy
// loops. It is refilled by Resreturn when a caller is done with its chunk.
type limiter struct {
	sync.Mutex
	cond      *sync.Cond
	remaining int64
	total     int64
	denied    [bounds.B_MAX]uint64
	granted   [bounds.B_MAX]uint64
}

var l = newLimiter(64 << 20)

func newLimiter(total int64) *limiter {
	lm := &limiter{remaining: total, total: total}
	lm.cond = sync.NewCond(&lm.Mutex)
	return lm
}

// Resadd blocks until n bytes of kernel heap budget are available for the
// call site b, then reserves them.
func Resadd(b bounds.Bounds_t, n int64) {
	l.Lock()
	for l.remaining < n {
		l.cond.Wait()
	}
	l.remaining -= n
	l.granted[b]++
	l.Unlock()
}

// Resadd_noblock attempts to reserve defaultChunk bytes of kernel heap
// budget for the call site b without blocking. It reports whether the
// reservation succeeded; callers that get false must stop making progress
// and return an error (or retry later) rather than spin.
func Resadd_noblock(b bounds.Bounds_t) bool {
	l.Lock()
	defer l.Unlock()
	if l.remaining < defaultChunk {
		l.denied[b]++
		return false
	}
	l.remaining -= defaultChunk
	l.granted[b]++
	return true
}

// Resreturn gives back n bytes of previously reserved budget, waking any
// blocked Resadd callers.
func Resreturn(n int64) {
	l.Lock()
	l.remaining += n
	if l.remaining > l.total {
		l.remaining = l.total
	}
	l.cond.Broadcast()
	l.Unlock()
}

// Stats reports how many times each call site was granted or denied
// budget, for the D_PROF / klog diagnostics surface.
type Stats struct {
	Granted [bounds.B_MAX]uint64
	Denied  [bounds.B_MAX]uint64
}

// Fetch returns a snapshot of current accounting.
func Fetch() Stats {
	l.Lock()
	defer l.Unlock()
	var s Stats
	s.Granted = l.granted
	s.Denied = l.denied
	return s
}
