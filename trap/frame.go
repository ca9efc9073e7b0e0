// Package trap implements the trap/IRQ/syscall entry layer (spec.md §4.3):
// a 256-entry action table indexed by interrupt vector, the uniform entry
// frame every vector's handler receives, an IRQ wrapper that sends EOI
// before dispatch, and the return-to-user epilogue that runs signal
// delivery (proc's C8 half) and the tick-threshold preemption check.
//
// There is no real assembly stub here -- a hosted Go module has nothing to
// push a frame for -- so Dispatch plays the role common_interrupt_handler
// plays in the original: the single entry point every vector, real or
// simulated, funnels through.
//
// Grounded on original_source/student-distrib/interrupt.h/interrupt.c and
// irq.h/irq.c; the teacher pack itself has no counterpart (its `kernel`
// package targets amd64 assembly entry points a hosted rewrite can't reuse
// directly), so this package is authored fresh against that C grounding, in
// the teacher's naming idiom (`_t` structs, `Err_t` returns where
// fallible).
package trap

// Frame_t is the uniform entry frame, a direct port of struct intr_regs:
// general-purpose registers pushed by the stub, the error code (present
// only for exceptions that push one -- zero otherwise), the faulting eip,
// cs, and eflags. original_source notes "QEMU interrupt does not seem to
// save ss:esp"; this frame carries IntrEsp (the kernel stack pointer at
// entry) instead of a user ss:esp pair for that reason.
type Frame_t struct {
	Edi     uint32
	Esi     uint32
	Ebp     uint32
	IntrEsp uint32
	Ebx     uint32
	Edx     uint32
	Ecx     uint32
	Eax     uint32

	ErrorCode uint32

	Eip    uint32
	Cs     uint16
	Eflags uint32
}
