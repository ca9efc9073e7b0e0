package proc

import (
	"corekernel/defs"
)

// Signal queues sig for delivery to t and wakes it if it is sleeping
// interruptibly. Mirrors the original's send_signal: set the pending bit,
// append the siginfo record, and if the target is INTERRUPTIBLE, wake it
// so the pending check at return-to-user (or inside a blocking primitive's
// wait loop) observes the new signal.
func (t *Task_t) Signal(info defs.Siginfo_t) {
	if info.Signo <= 0 || info.Signo >= defs.NSIG {
		panic("bad signo")
	}
	t.sigmu.Lock()
	if info.Signo == defs.SIGKILL {
		t.forced |= uint32(1) << uint(defs.SIGKILL)
	}
	t.pending = append(t.pending, info)
	t.sigmu.Unlock()

	if t.getState() == TASK_INTERRUPTIBLE {
		WakeupProc(t)
	}
}

// Forceful marks signo as forced on t: it bypasses both the task's blocked
// mask and an ignore disposition. SIGKILL is implicitly forced.
func (t *Task_t) Forceful(signo int) {
	t.sigmu.Lock()
	t.forced |= uint32(1) << uint(signo)
	t.sigmu.Unlock()
}

// SetBlocked installs mask as the full blocked-signal bitmask.
func (t *Task_t) SetBlocked(mask uint32) {
	t.sigmu.Lock()
	t.blocked = mask
	t.sigmu.Unlock()
}

// Pending reports whether a deliverable signal is waiting: pending & ~blocked
// is non-empty, or forced is non-empty. Mirrors the original's
// signal_pending(t), consulted by every blocking primitive's wait loop.
func (t *Task_t) Pending() bool {
	t.sigmu.Lock()
	defer t.sigmu.Unlock()
	return t.pendingLocked()
}

func (t *Task_t) pendingLocked() bool {
	var mask uint32
	for _, si := range t.pending {
		mask |= uint32(1) << uint(si.Signo)
	}
	if mask&^t.blocked != 0 {
		return true
	}
	return t.forced != 0
}

// deliverable reports whether the pending signal si may be delivered right
// now: it is either forced or not blocked.
func (t *Task_t) deliverable(si defs.Siginfo_t) bool {
	bit := uint32(1) << uint(si.Signo)
	if t.forced&bit != 0 {
		return true
	}
	return t.blocked&bit == 0
}

// Outcome enumerates what Deliver did with the picked signal.
type Outcome int

const (
	DeliverNone     Outcome = iota // nothing pending and deliverable
	DeliverDropped                 // ignored, or default-ignore: dropped silently
	DeliverFatal                   // default action terminates the task
	DeliverHandler                 // a user handler frame should be built
)

// Deliver picks the lowest-numbered pending, deliverable signal and applies
// its disposition, mirroring the return-to-user signal-delivery step
// (spec.md §4.5): ignore-and-not-forced drops it, default-kill terminates,
// otherwise the caller (trap entry) builds the user-stack trampoline frame.
// Deliver consumes the chosen siginfo from the pending queue in all cases
// except DeliverNone.
func (t *Task_t) Deliver() (defs.Siginfo_t, Outcome) {
	t.sigmu.Lock()

	best := -1
	for i, si := range t.pending {
		if !t.deliverable(si) {
			continue
		}
		if best == -1 || si.Signo < t.pending[best].Signo {
			best = i
		}
	}
	if best == -1 {
		t.sigmu.Unlock()
		return defs.Siginfo_t{}, DeliverNone
	}

	si := t.pending[best]
	t.pending = append(t.pending[:best], t.pending[best+1:]...)
	disp := t.Sigactions[si.Signo]
	forced := t.forced&(uint32(1)<<uint(si.Signo)) != 0
	t.sigmu.Unlock()

	switch {
	case disp == defs.SIG_IGN && !forced:
		return si, DeliverDropped
	case disp == defs.SIG_FN && !forced:
		return si, DeliverHandler
	default:
		// SIG_DFL, or forced (forced bypasses ignore/handler and runs the
		// default action -- SIGKILL always lands here).
		if defs.IsFatalByDefault(si.Signo) || si.Signo == defs.SIGKILL {
			return si, DeliverFatal
		}
		return si, DeliverDropped
	}
}

// Sleep transitions t to state (INTERRUPTIBLE or UNINTERRUPTIBLE); it does
// not call Schedule itself. It returns EINTR immediately if a deliverable signal is
// already pending and state is INTERRUPTIBLE, mirroring the
// "while (!condition && !signal_pending) schedule();" wait pattern used by
// every blocking primitive (spec.md §4.3's suspension points).
func (t *Task_t) Sleep(state State_t) defs.Err_t {
	if state == TASK_INTERRUPTIBLE && t.Pending() {
		return -defs.EINTR
	}
	t.setState(state)
	return 0
}
