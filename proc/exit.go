package proc

import (
	"corekernel/defs"
)

// reap transitions a zombie task to dead and removes it from the pid
// table, returning its exit code. Mirrors the original's _do_wait.
func reap(t *Task_t) int {
	t.setState(TASK_DEAD)
	table.Del(int(t.Pid))
	return t.Exitcode
}

// Exit tears a task down: records its exit code, reparents its children to
// pid 1, and notifies its parent via SIGCHLD (or reaps it immediately if
// the parent ignores SIGCHLD). Mirrors the original's do_exit, minus the
// address-space/fd teardown, which callers perform via Aspace.Uvmfree and
// CloseFd before calling Exit.
func (t *Task_t) Exit(code int) {
	t.mu.Lock()
	t.Exitcode = code
	t.State = TASK_ZOMBIE
	t.mu.Unlock()

	if t.Ppid == 0 {
		panic("killing process tree")
	}

	forEachTask(func(c *Task_t) {
		if c.Ppid == t.Pid {
			c.mu.Lock()
			c.Ppid = 1
			c.mu.Unlock()
		}
	})

	parent, ok := GetTask(t.Ppid)
	if !ok {
		reap(t)
		return
	}
	if parent.Sigactions[defs.SIGCHLD] == defs.SIG_IGN {
		reap(t)
		return
	}
	parent.Signal(defs.Siginfo_t{Signo: defs.SIGCHLD, Pid: t.Pid, Status: code})
	WakeupProc(parent)
}

// Wait reaps child if it has already exited, returning its exit status.
// It is the caller's job to block (via Schedule) and retry if the child
// has not exited yet; Wait itself never blocks. Mirrors the non-blocking
// half of the original's do_wait.
func (parent *Task_t) Wait(child defs.Pid_t) (int, defs.Err_t) {
	t, ok := GetTask(child)
	if !ok || t.Ppid != parent.Pid {
		return 0, -defs.ECHILD
	}
	if t.getState() != TASK_ZOMBIE {
		return 0, -defs.EAGAIN
	}
	return reap(t), 0
}

// HasChildren reports whether parent has any live (or zombie, not yet
// reaped) children, optionally restricted to a process group.
func (parent *Task_t) HasChildren(pgid defs.Pid_t) bool {
	found := false
	forEachTask(func(t *Task_t) {
		if t.Ppid == parent.Pid && (pgid == 0 || t.Pgid == pgid) {
			found = true
		}
	})
	return found
}

// WaitAny reaps the first zombie child belonging to parent (optionally
// restricted to pgid), mirroring the non-blocking half of do_waitpg.
func (parent *Task_t) WaitAny(pgid defs.Pid_t) (defs.Pid_t, int, defs.Err_t) {
	var zombie *Task_t
	forEachTask(func(t *Task_t) {
		if zombie != nil {
			return
		}
		if t.Ppid == parent.Pid && (pgid == 0 || t.Pgid == pgid) && t.getState() == TASK_ZOMBIE {
			zombie = t
		}
	})
	if zombie == nil {
		if !parent.HasChildren(pgid) {
			return 0, 0, -defs.ECHILD
		}
		return 0, 0, -defs.EAGAIN
	}
	pid := zombie.Pid
	code := reap(zombie)
	return pid, code, 0
}
