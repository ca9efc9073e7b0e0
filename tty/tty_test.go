package tty

import (
	"testing"

	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/mem"
	"corekernel/proc"
)

func freshPhysmem(npages int) *mem.Physmem_t {
	mem.Physmem = &mem.Physmem_t{}
	return mem.Phys_init(npages, 0)
}

// sink is a Userio_i whose Remain() reports a fixed capacity and which
// records whatever Uiowrite receives, for asserting Read's output.
type sink struct {
	cap int
	got []byte
}

func (s *sink) Uioread(dst []uint8) (int, defs.Err_t) { return 0, 0 }
func (s *sink) Uiowrite(src []uint8) (int, defs.Err_t) {
	s.got = append(s.got, src...)
	return len(src), 0
}
func (s *sink) Remain() int  { return s.cap }
func (s *sink) Totalsz() int { return s.cap }

func TestReadReturnsLineWhenCanonicalBufferEndsInNewline(t *testing.T) {
	freshPhysmem(4)
	term := MkTty(4, 0, mem.Physmem)
	if err := term.PushInput([]byte("hello\n")); err != 0 {
		t.Fatalf("push: %d", err)
	}

	owner := proc.NewTask(1, defs.ABI_RICH)
	dst := &sink{cap: 6}
	n, err := term.Read(owner, dst, -1)
	if err != 0 {
		t.Fatalf("read: %d", err)
	}
	if n != 6 || string(dst.got) != "hello\n" {
		t.Fatalf("expected \"hello\\n\", got %q (n=%d)", dst.got, n)
	}
}

func TestReadBlocksWhenNoNewlineYet(t *testing.T) {
	freshPhysmem(4)
	term := MkTty(4, 0, mem.Physmem)
	term.PushInput([]byte("hello"))

	owner := proc.NewTask(1, defs.ABI_RICH)
	dst := &sink{cap: 16}
	_, err := term.Read(owner, dst, -1)
	if err != readyAsEAGAIN {
		t.Fatalf("expected EAGAIN park-and-retry signal, got %d", err)
	}
	if owner.State != proc.TASK_INTERRUPTIBLE {
		t.Fatalf("expected task parked INTERRUPTIBLE, got %v", owner.State)
	}
}

func TestSecondReaderIsEBUSY(t *testing.T) {
	freshPhysmem(4)
	term := MkTty(4, 0, mem.Physmem)
	term.PushInput([]byte("partial"))

	first := proc.NewTask(1, defs.ABI_RICH)
	term.Read(first, &sink{cap: 16}, -1)

	second := proc.NewTask(1, defs.ABI_RICH)
	_, err := term.Read(second, &sink{cap: 16}, -1)
	if err != -defs.EBUSY {
		t.Fatalf("expected EBUSY for a second concurrent reader, got %d", err)
	}
}

func TestPushInputWakesParkedReader(t *testing.T) {
	freshPhysmem(4)
	term := MkTty(4, 0, mem.Physmem)
	term.PushInput([]byte("partial"))

	owner := proc.NewTask(1, defs.ABI_RICH)
	term.Read(owner, &sink{cap: 16}, -1)
	if owner.State != proc.TASK_INTERRUPTIBLE {
		t.Fatal("expected parked")
	}

	if err := term.PushInput([]byte("\n")); err != 0 {
		t.Fatalf("push: %d", err)
	}
	if owner.State != proc.TASK_RUNNING {
		t.Fatalf("expected reader woken to RUNNING, got %v", owner.State)
	}

	dst := &sink{cap: 16}
	n, err := term.Read(owner, dst, -1)
	if err != 0 || string(dst.got) != "partial\n" {
		t.Fatalf("expected full line on retry, got %q (err=%d)", dst.got, err)
	}
	_ = n
}

func TestIoctlTcgetsAndForegroundGroup(t *testing.T) {
	term := MkTty(4, 0, nil)
	term.Session = &Session_t{Sid: 1, ForegroundPgid: 1}

	if _, err := term.Ioctl(TCGETS, 0); err != 0 {
		t.Fatalf("TCGETS: %d", err)
	}
	pgid, err := term.Ioctl(TIOCGPGRP, 0)
	if err != 0 || pgid != 1 {
		t.Fatalf("TIOCGPGRP: pgid=%d err=%d", pgid, err)
	}
	if _, err := term.Ioctl(TIOCSPGRP, 7); err != 0 {
		t.Fatalf("TIOCSPGRP: %d", err)
	}
	if term.Session.ForegroundPgid != 7 {
		t.Fatalf("expected foreground pgid updated to 7, got %d", term.Session.ForegroundPgid)
	}
}

func TestIoctlWithoutSessionIsENOTTY(t *testing.T) {
	term := MkTty(4, 0, nil)
	if _, err := term.Ioctl(TIOCGPGRP, 0); err != -defs.ENOTTY {
		t.Fatalf("expected ENOTTY, got %d", err)
	}
}

func TestSeekIsESPIPE(t *testing.T) {
	term := MkTty(4, 0, nil)
	if _, err := term.Seek(0, 0); err != -defs.ESPIPE {
		t.Fatalf("expected ESPIPE, got %d", err)
	}
}

func TestPollReadyOnlyWhenLineComplete(t *testing.T) {
	freshPhysmem(4)
	term := MkTty(4, 0, mem.Physmem)
	term.PushInput([]byte("partial"))

	r, err := term.Pollone(fdops.Pollmsg_t{Events: fdops.R_READ | fdops.R_WRITE})
	if err != 0 {
		t.Fatalf("poll: %d", err)
	}
	if r&fdops.R_READ != 0 {
		t.Fatal("expected not read-ready before newline arrives")
	}

	term.PushInput([]byte("\n"))
	r, err = term.Pollone(fdops.Pollmsg_t{Events: fdops.R_READ})
	if err != 0 || r&fdops.R_READ == 0 {
		t.Fatalf("expected read-ready after newline, r=%v err=%d", r, err)
	}
}
