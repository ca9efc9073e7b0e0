// Package tty implements the TTY subsystem of §4.8: a reference-counted
// line-buffered character device with termios-controlled canonical-mode
// blocking reads, session/foreground-group plumbing for job control, and
// the ioctl surface user programs use to query/configure it. The ANSI
// escape decoder, VGA text console and PS/2 keyboard collaborator are
// out-of-scope external collaborators per spec.md §1 -- this package
// exposes the registration/callback surfaces they plug into instead of
// implementing them.
//
// Grounded on original_source/src/char/tty.h/tty.c (the richer of the two
// TTY implementations the Design Notes describe -- this repo follows it
// consistently, per that note's own guidance).
package tty

// Termios_t mirrors the POSIX termios wire layout (uapi/asm-generic/
// termbits.h, as original_source/src/char/tty.h documents it), trimmed to
// the fields this kernel's line discipline actually consults.
type Termios_t struct {
	Iflag uint32
	Oflag uint32
	Cflag uint32
	Lflag uint32
	Line  uint8
	Cc    [19]uint8
}

// cc control-character indices.
const (
	VINTR  = 0
	VQUIT  = 1
	VERASE = 2
	VKILL  = 3
	VEOF   = 4
	VMIN   = 6
	VSTART = 8
	VSTOP  = 9
)

// lflag bits relevant to the line discipline.
const (
	ISIG   uint32 = 0000001
	ICANON uint32 = 0000002
	ECHO   uint32 = 0000010
	ECHOE  uint32 = 0000020
	ECHOK  uint32 = 0000040
)

// DefaultTermios matches original_source's early_console initialization:
// echo, erase-echo and canonical mode all on, signal generation enabled,
// erase character backspace. No control-char echo flag is set.
func DefaultTermios() Termios_t {
	t := Termios_t{Lflag: ECHO | ECHOE | ICANON | ISIG}
	t.Cc[VERASE] = '\b'
	t.Cc[VEOF] = 4 // ^D
	t.Cc[VINTR] = 3 // ^C
	t.Cc[VQUIT] = 28 // ^\
	return t
}

// Winsize_t mirrors struct winsize for TIOCGWINSZ.
type Winsize_t struct {
	Row uint16
	Col uint16
}

// ioctl request numbers, from original_source's ioctls.h usage in
// tty_ioctl.
const (
	TCGETS     = 0x5401
	TCSETS     = 0x5402
	TCSETSW    = 0x5403
	TCSETSF    = 0x5404
	TIOCGWINSZ = 0x5413
	TIOCGPGRP  = 0x540F
	TIOCSPGRP  = 0x5410
	TIOCGSID   = 0x5429
)
