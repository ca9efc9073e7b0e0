package proc

import (
	"testing"

	"corekernel/defs"
)

func TestSignalWakesInterruptibleTask(t *testing.T) {
	resetSched()
	tk := NewTask(1, defs.ABI_RICH)
	tk.setState(TASK_INTERRUPTIBLE)

	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR1})

	if !tk.Pending() {
		t.Fatal("expected signal pending")
	}
	if !Runnable(tk) {
		t.Fatal("expected task woken onto the runqueue")
	}
}

func TestPendingRespectsBlockedMask(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.SetBlocked(uint32(1) << uint(defs.SIGUSR1))
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR1})

	if tk.Pending() {
		t.Fatal("blocked signal should not count as pending")
	}
}

func TestForcedBypassesBlockedMask(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.SetBlocked(uint32(1) << uint(defs.SIGKILL))
	tk.Forceful(defs.SIGKILL)
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGKILL})

	if !tk.Pending() {
		t.Fatal("forced signal must be pending regardless of blocked mask")
	}
}

func TestDeliverIgnoredSignalIsDropped(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Sigactions[defs.SIGUSR1] = defs.SIG_IGN
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR1})

	_, outcome := tk.Deliver()
	if outcome != DeliverDropped {
		t.Fatalf("expected DeliverDropped, got %v", outcome)
	}
	if _, again := tk.Deliver(); again != DeliverNone {
		t.Fatal("signal should have been consumed by the first Deliver")
	}
}

func TestDeliverDefaultFatalSignal(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGSEGV})

	si, outcome := tk.Deliver()
	if outcome != DeliverFatal {
		t.Fatalf("expected DeliverFatal, got %v", outcome)
	}
	if si.Signo != defs.SIGSEGV {
		t.Fatalf("expected SIGSEGV, got %d", si.Signo)
	}
}

func TestDeliverHandlerInstalled(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Sigactions[defs.SIGUSR2] = defs.SIG_FN
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR2})

	_, outcome := tk.Deliver()
	if outcome != DeliverHandler {
		t.Fatalf("expected DeliverHandler, got %v", outcome)
	}
}

func TestDeliverPicksLowestSignalNumberFirst(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Sigactions[defs.SIGTERM] = defs.SIG_IGN
	tk.Sigactions[defs.SIGHUP] = defs.SIG_IGN
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGTERM})
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGHUP})

	si, _ := tk.Deliver()
	if si.Signo != defs.SIGHUP {
		t.Fatalf("expected SIGHUP delivered first, got %d", si.Signo)
	}
}

func TestSleepInterruptibleReturnsEINTRWhenSignalAlreadyPending(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGINT})

	if err := tk.Sleep(TASK_INTERRUPTIBLE); err != -defs.EINTR {
		t.Fatalf("expected EINTR, got %v", err)
	}
}

func TestSleepUninterruptibleIgnoresPendingSignal(t *testing.T) {
	tk := NewTask(1, defs.ABI_RICH)
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGINT})

	if err := tk.Sleep(TASK_UNINTERRUPTIBLE); err != 0 {
		t.Fatalf("expected no error, got %v", err)
	}
	if tk.getState() != TASK_UNINTERRUPTIBLE {
		t.Fatal("expected task parked in UNINTERRUPTIBLE")
	}
}
