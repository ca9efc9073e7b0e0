// Package fdops defines the capability-set contract a file descriptor
// exposes to the syscall layer: read, write, seek, readdir, ioctl, poll,
// release and (re)open, each with a sensible VFS-supplied default when a
// particular backing object omits it. Regular files, directories, devices,
// pipes and TTYs all implement Fdops_i; the VFS never type-switches on what
// kind of thing backs a descriptor.
//
// Grounded on the fd.Fd_t.Fops field and the fdops.Userio_i/Pollmsg_t/
// Ready_t types referenced by circbuf/circbuf.go, vm/userbuf.go and
// ufs/driver.go in the teacher pack (fdops itself is an empty placeholder
// module there; the interface is reconstructed from those call sites and
// from spec.md §4.7's capability-set redesign note).
package fdops

import (
	"corekernel/defs"
	"corekernel/ustr"
)

// Userio_i is a source or sink for bytes crossing the kernel/user boundary:
// a user-memory buffer, a gathered set of iovecs, or (in tests) a plain
// in-kernel byte slice.
type Userio_i interface {
	// Uioread copies from this source into dst, returning the count copied.
	Uioread(dst []uint8) (int, defs.Err_t)
	// Uiowrite copies src into this sink, returning the count copied.
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Remain reports how many bytes of capacity remain.
	Remain() int
	// Totalsz reports the buffer's total capacity.
	Totalsz() int
}

// Ready_t is a bitmask of poll readiness conditions.
type Ready_t uint8

const (
	R_READ  Ready_t = 1 << iota // readable without blocking
	R_WRITE                     // writable without blocking
	R_ERROR                     // an error condition is pending
	R_HUP                       // the peer has hung up
)

// Pollmsg_t carries a poll request: which conditions the caller cares
// about, and (when the request blocks) how to wake the caller once one of
// them becomes true.
type Pollmsg_t struct {
	Events Ready_t
	// Dowait is true when the caller wants to block until a condition in
	// Events is satisfied rather than sample readiness once.
	Dowait bool
}

// DirentFiller is the iterator callback readdir invokes once per entry; it
// returns true to stop iteration early.
type DirentFiller func(name ustr.Ustr, ino int, filetype int) bool

// Fdops_i is the operation set a descriptor exposes to the syscall layer.
// Every method may return ENOSYS-class errors for objects that cannot
// sensibly support it (e.g. Readdir on a non-directory); the VFS layer
// (package fs) is what supplies the spec-mandated EINVAL/ENOTDIR/ESPIPE
// default fallbacks for omitted operations, by wrapping a partial
// implementation before it ever reaches here.
type Fdops_i interface {
	Close() defs.Err_t
	Reopen() defs.Err_t
	Read(dst Userio_i, offset int) (int, defs.Err_t)
	Write(src Userio_i, offset int) (int, defs.Err_t)
	Seek(off int, whence int) (int, defs.Err_t)
	Readdir(fill DirentFiller, offset int) (int, defs.Err_t)
	Ioctl(cmd int, arg int) (int, defs.Err_t)
	Pollone(pm Pollmsg_t) (Ready_t, defs.Err_t)
}
