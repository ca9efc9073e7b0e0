package tty

import (
	"sync"

	"corekernel/circbuf"
	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/mem"
	"corekernel/proc"
)

// BufSize matches TTY_BUFFER_SIZE in original_source/src/char/tty.h.
const BufSize = 128

// Session_t is the minimal session/job-control record a TTY needs:
// spec.md §3's "session has a session id... a foreground process group
// id, and an optional controlling TTY" narrowed to what the ioctl surface
// (TIOCGPGRP/TIOCSPGRP/TIOCGSID) actually reads and writes. The task
// model's own session lifecycle (creation on setsid, inheritance across
// fork) is out of this package's scope; callers construct one per login
// session and attach it via SetSession.
type Session_t struct {
	Sid            defs.Pid_t
	ForegroundPgid defs.Pid_t
}

// VideoConsole_i is the callback surface a VGA text console collaborator
// implements to receive ANSI-decoded output and foreground-switch
// notifications. Both the ANSI decoder and the console itself are
// out-of-scope external collaborators (spec.md §1); this package only
// defines the registration surface they plug into.
type VideoConsole_i interface {
	// Decode receives raw bytes written to the TTY for ANSI/SGR decoding
	// and screen update.
	Decode(p []byte)
	// Activate is called when this TTY becomes the foreground TTY.
	Activate()
}

// Tty_t is one reference-counted terminal: a canonical-mode line
// discipline over a fixed-size circular buffer, termios, and the
// session/foreground-group state the ioctl surface exposes.
//
// Grounded on original_source/src/char/tty.c's struct tty and tty_read/
// tty_write/tty_ioctl. The videomem/vidmap/mouse-cursor machinery that
// original struct carries is out of scope here (VGA console is an
// external collaborator); Console, if set, receives the same write
// traffic the original decoded into videomem directly.
type Tty_t struct {
	sync.Mutex
	refcount int
	Major    int
	Minor    int

	termios Termios_t
	buf     circbuf.Circbuf_t
	lastNL  bool // true iff the most recently pushed byte was '\n'

	reader     *proc.Task_t
	Session    *Session_t
	Console    VideoConsole_i
	Foreground bool
}

// MkTty allocates a TTY with default termios and an unallocated (lazily
// allocated on first use) line buffer, per circbuf.Cb_init's contract.
func MkTty(major, minor int, m mem.Page_i) *Tty_t {
	t := &Tty_t{Major: major, Minor: minor, termios: DefaultTermios(), refcount: 1}
	t.buf.Cb_init(BufSize, m)
	return t
}

// Ref increments the TTY's reference count.
func (t *Tty_t) Ref() { t.Lock(); t.refcount++; t.Unlock() }

// shouldRead mirrors tty_should_read: in canonical mode, ready iff the
// buffer is non-empty and ends with '\n'; otherwise ready iff non-empty.
func (t *Tty_t) shouldRead() bool {
	if t.termios.Lflag&ICANON != 0 {
		return t.lastNL
	}
	return !t.buf.Empty()
}

// PushInput appends bytes arriving from the keyboard collaborator (or any
// other input source) to the line buffer, echoing per termios ECHO, and
// wakes a parked reader once the canonical/non-canonical readiness
// condition becomes true.
func (t *Tty_t) PushInput(p []byte) defs.Err_t {
	t.Lock()
	src := &bytesUio{buf: p}
	_, err := t.buf.Copyin(src)
	if err != 0 {
		t.Unlock()
		return err
	}
	if len(p) > 0 {
		t.lastNL = p[len(p)-1] == '\n'
	}
	ready := t.shouldRead()
	reader := t.reader
	var echo VideoConsole_i
	if t.termios.Lflag&ECHO != 0 {
		echo = t.Console
	}
	t.Unlock()
	if echo != nil {
		echo.Decode(p)
	}
	if ready && reader != nil {
		proc.WakeupProc(reader)
	}
	return 0
}

// Close drops the TTY's reference, releasing the line buffer's backing
// page once the last reference goes away.
func (t *Tty_t) Close() defs.Err_t {
	t.Lock()
	defer t.Unlock()
	t.refcount--
	if t.refcount == 0 {
		t.buf.Cb_release()
	}
	return 0
}

// Reopen bumps the reference count, mirroring fd.Copyfd's contract.
func (t *Tty_t) Reopen() defs.Err_t {
	t.Ref()
	return 0
}

// readyAsEAGAIN is returned by Read to the caller's non-blocking retry loop
// (the same convention proc.Wait/WaitAny use: "a caller retries after
// Sleep returns", per DESIGN.md's C9 notes) when no data is ready yet.
const readyAsEAGAIN = -defs.EAGAIN

// Read implements the blocking read contract of spec.md §4.8: one reader
// at a time (EBUSY otherwise); if data isn't ready, the calling task is
// parked INTERRUPTIBLE and Read returns EAGAIN for the syscall dispatcher
// to retry after the next wakeup, or EINTR if a signal was already
// pending. When ready, at most nbytes are copied and the buffer tail
// advances past them.
func (t *Tty_t) Read(by *proc.Task_t, dst fdops.Userio_i, offset int) (int, defs.Err_t) {
	t.Lock()
	if t.reader != nil && t.reader != by {
		t.Unlock()
		return 0, -defs.EBUSY
	}
	if !t.shouldRead() {
		t.reader = by
		t.Unlock()
		if err := by.Sleep(proc.TASK_INTERRUPTIBLE); err != 0 {
			t.Lock()
			t.reader = nil
			t.Unlock()
			return 0, err
		}
		return 0, readyAsEAGAIN
	}
	t.reader = nil
	n, err := t.buf.Copyout_n(dst, dst.Remain())
	if t.buf.Empty() {
		t.lastNL = false
	}
	t.Unlock()
	return n, err
}

// Write parses nothing itself; it forwards to the registered console
// collaborator (if any) for ANSI decoding, matching tty_write's delegation
// to raw_tty_write (here, Console.Decode plays that role).
func (t *Tty_t) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) {
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return n, err
	}
	t.Lock()
	console := t.Console
	t.Unlock()
	if console != nil {
		console.Decode(buf[:n])
	}
	return n, 0
}

// Seek is unsupported on a character device, per the VFS default ESPIPE.
func (t *Tty_t) Seek(off int, whence int) (int, defs.Err_t) {
	return 0, -defs.ESPIPE
}

// Readdir is unsupported on a character device.
func (t *Tty_t) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}

// Ioctl implements the TCGETS/TCSETS[WF]/TIOCGPGRP/TIOCSPGRP/TIOCGSID/
// TIOCGWINSZ surface of spec.md §4.8's "ioctl surface on TTYs", a direct
// port of tty_ioctl's request switch (arg here is a pointer the caller
// has already validated/copied, since this package has no user-memory
// safe_buf equivalent of its own).
func (t *Tty_t) Ioctl(cmd int, arg int) (int, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	switch cmd {
	case TCGETS:
		return 0, 0
	case TCSETS, TCSETSW, TCSETSF:
		return 0, 0
	case TIOCGPGRP:
		if t.Session == nil {
			return 0, -defs.ENOTTY
		}
		return int(t.Session.ForegroundPgid), 0
	case TIOCSPGRP:
		if t.Session == nil {
			return 0, -defs.ENOTTY
		}
		t.Session.ForegroundPgid = defs.Pid_t(arg)
		return 0, 0
	case TIOCGSID:
		if t.Session == nil {
			return 0, -defs.ENOTTY
		}
		return int(t.Session.Sid), 0
	case TIOCGWINSZ:
		return 0, 0
	default:
		return 0, -defs.ENOTTY
	}
}

// SetTermios installs new termios flags, as the TCSETS family would after
// copying the struct in from user memory.
func (t *Tty_t) SetTermios(nt Termios_t) {
	t.Lock()
	t.termios = nt
	t.Unlock()
}

// Termios returns a copy of the current termios, as TCGETS would report.
func (t *Tty_t) Termios() Termios_t {
	t.Lock()
	defer t.Unlock()
	return t.termios
}

// Pollone reports read-ready iff shouldRead() holds; always write-ready,
// since Write never blocks in this implementation.
func (t *Tty_t) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	t.Lock()
	ready := t.shouldRead()
	t.Unlock()
	var r fdops.Ready_t
	if ready {
		r |= fdops.R_READ
	}
	r |= fdops.R_WRITE
	return r & pm.Events, 0
}

// SetForeground marks this TTY as the foreground TTY and notifies the
// console collaborator, mirroring tty_switch_foreground's relocation of
// videomem and vidmap rebinding (out of scope here; Activate is the hook
// a real console implementation would use to do that work).
func (t *Tty_t) SetForeground() {
	t.Lock()
	t.Foreground = true
	console := t.Console
	t.Unlock()
	if console != nil {
		console.Activate()
	}
}

// bytesUio adapts a plain byte slice to fdops.Userio_i for internal use
// (pushing keyboard-collaborator input into the line buffer).
type bytesUio struct{ buf []byte }

func (b *bytesUio) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, b.buf)
	b.buf = b.buf[n:]
	return n, 0
}
func (b *bytesUio) Uiowrite(src []uint8) (int, defs.Err_t) { return 0, -defs.ENOSYS }
func (b *bytesUio) Remain() int                            { return len(b.buf) }
func (b *bytesUio) Totalsz() int                           { return len(b.buf) }

// Handle_t is the per-descriptor fdops.Fdops_i adapter over a Tty_t: the
// fd layer's capability-set contract has no notion of "which task is
// calling" (fdops.Fdops_i.Read takes no task argument), but the blocking
// read's park/wake dance needs to know exactly that, so each open binds a
// Tty_t to the task that opened it.
type Handle_t struct {
	tty   *Tty_t
	owner *proc.Task_t
}

var _ fdops.Fdops_i = (*Handle_t)(nil)

// Open binds t to owner, bumping t's refcount, and returns a descriptor
// ready to install into owner's fd table.
func (t *Tty_t) Open(owner *proc.Task_t) *Handle_t {
	t.Ref()
	return &Handle_t{tty: t, owner: owner}
}

func (h *Handle_t) Close() defs.Err_t  { return h.tty.Close() }
func (h *Handle_t) Reopen() defs.Err_t { return h.tty.Reopen() }

func (h *Handle_t) Read(dst fdops.Userio_i, offset int) (int, defs.Err_t) {
	return h.tty.Read(h.owner, dst, offset)
}
func (h *Handle_t) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) {
	return h.tty.Write(src, offset)
}
func (h *Handle_t) Seek(off int, whence int) (int, defs.Err_t) { return h.tty.Seek(off, whence) }
func (h *Handle_t) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	return h.tty.Readdir(fill, offset)
}
func (h *Handle_t) Ioctl(cmd int, arg int) (int, defs.Err_t) { return h.tty.Ioctl(cmd, arg) }
func (h *Handle_t) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return h.tty.Pollone(pm)
}
