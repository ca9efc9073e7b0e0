package trap

import (
	"testing"

	"corekernel/defs"
	"corekernel/proc"
)

func TestDispatchInvokesInstalledAction(t *testing.T) {
	var got int = -1
	SetAction(0x21, func(vec int, f *Frame_t) { got = vec })
	defer ClearAction(0x21)

	Dispatch(0x21, &Frame_t{})
	if got != 0x21 {
		t.Fatalf("expected handler invoked with vec 0x21, got %d", got)
	}
}

func TestDispatchUnhandledVectorDoesNotPanic(t *testing.T) {
	Dispatch(0x77, &Frame_t{Eip: 0x1000})
}

type fakeIrqController struct {
	enabled map[int]bool
	eoiLog  []int
}

func (f *fakeIrqController) EnableIrq(irq int)  { f.enabled[irq] = true }
func (f *fakeIrqController) DisableIrq(irq int) { f.enabled[irq] = false }
func (f *fakeIrqController) SendEOI(irq int)    { f.eoiLog = append(f.eoiLog, irq) }

func TestSetIrqHandlerSendsEOIBeforeHandler(t *testing.T) {
	ctrl := &fakeIrqController{enabled: map[int]bool{}}
	var order []string
	SetIrqHandler(ctrl, 1, func(f *Frame_t) { order = append(order, "handler") })
	defer ClearIrqHandler(ctrl, 1)

	if !ctrl.enabled[1] {
		t.Fatal("expected IRQ 1 enabled")
	}

	Dispatch(IrqVec(1), &Frame_t{})
	if len(ctrl.eoiLog) != 1 || ctrl.eoiLog[0] != 1 {
		t.Fatalf("expected one EOI for irq 1, got %v", ctrl.eoiLog)
	}
	if len(order) != 1 {
		t.Fatalf("expected handler invoked once, got %v", order)
	}
}

func TestIrqVecRoundtrip(t *testing.T) {
	for n := 0; n < IRQNum; n++ {
		if IrqNum(IrqVec(n)) != n {
			t.Fatalf("IrqVec/IrqNum roundtrip failed for %d", n)
		}
	}
}

func TestClassifyException(t *testing.T) {
	cases := map[int]int{
		ExcDivideByZero:      defs.SIGFPE,
		ExcInvalidOpcode:     defs.SIGILL,
		ExcPageFault:         defs.SIGSEGV,
		ExcGeneralProtection: defs.SIGSEGV,
		ExcStackSegmentFault: defs.SIGBUS,
	}
	for vec, want := range cases {
		if got := ClassifyException(vec); got != want {
			t.Fatalf("vector 0x%x: expected signal %d, got %d", vec, want, got)
		}
	}
}

func TestDiagnoseDecodesKnownInstruction(t *testing.T) {
	// 0x90 is NOP in every x86 mode.
	s := Diagnose(ExcInvalidOpcode, &Frame_t{Eip: 0x1000}, []byte{0x90})
	if s == "" {
		t.Fatal("expected a non-empty diagnostic")
	}
}

type fakeUserStack struct {
	pushed bool
	ok     bool
}

func (s *fakeUserStack) PushSigFrame(esp uint32, saved Frame_t, info defs.Siginfo_t, trampoline uint32) (uint32, bool) {
	s.pushed = true
	return esp - 64, s.ok
}

func TestEpilogueRunsHandlerAndStashesFrame(t *testing.T) {
	tk := proc.NewTask(1, defs.ABI_RICH)
	tk.SetHandler(defs.SIGUSR1, 0xdead1234)
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR1})

	f := &Frame_t{Eip: 0x2000, IntrEsp: 0x8000}
	stack := &fakeUserStack{ok: true}
	cpu := &Cpu_t{}

	next := Epilogue(tk, f, cpu, stack, 0xfeed0000)
	if next != tk {
		t.Fatalf("expected epilogue to keep running the same task pre-threshold, got %v", next)
	}
	if !stack.pushed {
		t.Fatal("expected PushSigFrame called")
	}
	if f.Eip != 0xdead1234 {
		t.Fatalf("expected eip rewritten to handler, got 0x%x", f.Eip)
	}
	if f.IntrEsp != 0x7fc0 {
		t.Fatalf("expected esp advanced past the pushed frame, got 0x%x", f.IntrEsp)
	}

	restored := &Frame_t{}
	if !SigReturn(tk.Pid, restored) {
		t.Fatal("expected a stashed frame to restore")
	}
	if restored.Eip != 0x2000 || restored.IntrEsp != 0x8000 {
		t.Fatalf("expected the pre-delivery frame restored, got %+v", restored)
	}
}

func TestEpilogueDroppedIgnoredSignalFallsThroughToTickCheck(t *testing.T) {
	tk := proc.NewTask(1, defs.ABI_RICH)
	tk.Sigactions[defs.SIGUSR2] = defs.SIG_IGN
	tk.Signal(defs.Siginfo_t{Signo: defs.SIGUSR2})

	f := &Frame_t{}
	cpu := &Cpu_t{}
	next := Epilogue(tk, f, cpu, &fakeUserStack{ok: true}, 0)
	if next != tk {
		t.Fatalf("expected same task returned below tick threshold, got %v", next)
	}
	if cpu.Ticks != 1 {
		t.Fatalf("expected tick counter incremented once, got %d", cpu.Ticks)
	}
}

func TestEpilogueReschedulesAtTickThreshold(t *testing.T) {
	tk := proc.NewTask(1, defs.ABI_RICH)
	f := &Frame_t{}
	cpu := &Cpu_t{Ticks: TickThreshold - 1}

	proc.Schedule(tk) // enqueue tk itself so Schedule has something runnable
	next := Epilogue(tk, f, cpu, &fakeUserStack{ok: true}, 0)
	if cpu.Ticks != 0 {
		t.Fatalf("expected tick counter reset at threshold, got %d", cpu.Ticks)
	}
	if next == nil {
		t.Fatal("expected a task dispatched after reaching the tick threshold")
	}
}

func TestEpilogueFatalSignalExitsAndReschedules(t *testing.T) {
	tk := proc.NewTask(1, defs.ABI_RICH)
	other := proc.NewTask(1, defs.ABI_RICH)
	proc.WakeupProc(other)

	tk.Signal(defs.Siginfo_t{Signo: defs.SIGSEGV})
	f := &Frame_t{}
	cpu := &Cpu_t{}
	next := Epilogue(tk, f, cpu, &fakeUserStack{ok: true}, 0)
	if next == nil {
		t.Fatal("expected a runnable task after the fatal signal reschedules")
	}
}
