package proc

import (
	"corekernel/defs"
	"corekernel/fd"
)

// CloneFlags selects what do_clone shares with the parent instead of
// deep-copying, mirroring the clone(2) flag bits the original's
// task/exec.c and sched.c assume but never enumerate as a named type.
type CloneFlags uint

const (
	// CLONE_VM shares the address space instead of taking a CoW fork of
	// it (a thread rather than a process).
	CLONE_VM CloneFlags = 1 << iota
	// CLONE_FILES gives the child the parent's own *Fd_t for every open
	// descriptor instead of a Reopen'd copy. The child still gets a table
	// of its own, so descriptors opened or closed later in one task do not
	// appear in or vanish from the other.
	CLONE_FILES
)

// Clone implements do_clone (spec.md §4.6): allocate a new task, give it
// its own or a shared address space per flags, populate its descriptor
// table, copy the signal disposition table, and place it on the
// runqueue. Grounded on vm.Vm_t.Fork() for the address-space half (the
// CoW state machine already lives there) and on task/exec.c's file-table
// handling for the rest.
func Clone(parent *Task_t, flags CloneFlags) (*Task_t, defs.Err_t) {
	child := NewTask(parent.Pid, parent.Abi)
	child.Comm = parent.Comm
	child.Pgid = parent.Pgid

	if flags&CLONE_VM != 0 {
		child.Aspace = parent.Aspace
	} else {
		na, err := parent.Aspace.Fork()
		if err != 0 {
			table.Del(int(child.Pid))
			return nil, err
		}
		child.Aspace = na
	}

	parent.fdmu.Lock()
	if flags&CLONE_FILES != 0 {
		for n, pf := range parent.fds {
			child.fds[n] = pf
		}
	} else {
		for n, pf := range parent.fds {
			nf, err := fd.Copyfd(pf)
			if err != 0 {
				parent.fdmu.Unlock()
				return nil, err
			}
			child.fds[n] = nf
		}
	}
	parent.fdmu.Unlock()

	if parent.Cwd != nil {
		cwdfd, err := fd.Copyfd(parent.Cwd.Fd)
		if err != 0 {
			return nil, err
		}
		child.Cwd = fd.MkRootCwd(cwdfd)
		child.Cwd.Path = parent.Cwd.Path
	}

	child.Sigactions = parent.Sigactions
	child.HandlerAddrs = parent.HandlerAddrs

	WakeupProc(child)
	return child, 0
}
