// Package fd implements the open file descriptor and current-working-
// directory types shared by every task: Fd_t wraps the capability-set
// described by fdops.Fdops_i with the permission bits a task opened it
// with, and Cwd_t resolves relative paths against a task's current
// directory.
package fd

import (
	"sync"

	"corekernel/bpath"
	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/ustr"
)

// File descriptor permission bits.
const (
	FD_READ    = 0x1 // read permission
	FD_WRITE   = 0x2 // write permission
	FD_CLOEXEC = 0x4 // close-on-exec flag
)

// Fd_t represents an open file descriptor.
type Fd_t struct {
	// Fops is an interface implemented via a pointer receiver, so Fops is
	// a reference, not a value.
	Fops  fdops.Fdops_i
	Perms int
}

// Copyfd duplicates an open file descriptor by reopening its underlying
// fops (used by dup/dup2 and by fork to share descriptors across tasks).
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

// Close_panic closes the descriptor and panics on failure; used at call
// sites where a close is known to be infallible (e.g. a descriptor the
// kernel itself just opened and never exposed to user error paths).
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

// Cwd_t tracks the current working directory for a task.
type Cwd_t struct {
	sync.Mutex // serializes concurrent chdirs
	Fd         *Fd_t
	Path       ustr.Ustr
}

// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	return cwd.Path.Extend(p)
}

// Canonicalpath resolves path components (., .., repeated slashes) in p
// relative to cwd, returning a normalized absolute path.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	p1 := cwd.Fullpath(p)
	return bpath.Canonicalize(p1)
}

// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(fd *Fd_t) *Cwd_t {
	c := &Cwd_t{}
	c.Fd = fd
	c.Path = ustr.MkUstrRoot()
	return c
}
