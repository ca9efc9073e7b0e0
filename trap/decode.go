package trap

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"corekernel/defs"
)

// ClassifyException maps a CPU exception vector to the signal spec.md §7
// says it translates to ("A CPU exception raised by a user task is
// translated to a signal (SIGSEGV, SIGFPE, SIGILL, SIGBUS)"). Breakpoint
// and debug exceptions raise SIGTRAP; exceptions with no listed mapping
// there (NMI, machine check, ...) default to SIGSEGV, matching the original's uniformly-fatal treatment of anything
// it doesn't special-case in exit.c's exception handler.
func ClassifyException(vec int) int {
	switch vec {
	case ExcDivideByZero, ExcX87FloatingPoint, ExcSIMDFloatingPoint:
		return defs.SIGFPE
	case ExcInvalidOpcode:
		return defs.SIGILL
	case ExcBreakpoint, ExcDebug:
		return defs.SIGTRAP
	case ExcStackSegmentFault, ExcAlignmentCheck:
		return defs.SIGBUS
	case ExcGeneralProtection, ExcPageFault, ExcInvalidTSS, ExcSegmentNotPresent:
		return defs.SIGSEGV
	default:
		return defs.SIGSEGV
	}
}

// Diagnose decodes the instruction at the faulting eip (code holds the
// bytes starting at f.Eip, as many as were readable) with x86asm.Decode and
// renders a one-line description, so the siginfo/log a CPU exception
// produces carries the faulting mnemonic instead of a bare opcode byte --
// the original's exception handlers are terse here (plain "exception N at
// eip"); this sharpens that without changing what gets signalled.
func Diagnose(vec int, f *Frame_t, code []byte) string {
	inst, err := x86asm.Decode(code, 32)
	if err != nil {
		return fmt.Sprintf("vector=0x%02x eip=0x%08x <undecodable: %v>", vec, f.Eip, err)
	}
	return fmt.Sprintf("vector=0x%02x eip=0x%08x len=%d insn=%q",
		vec, f.Eip, inst.Len, inst.String())
}
