package trap

import "corekernel/klog"

// CPU exception vectors, from interrupt.h's INTR_EXC_* list (sourced from
// the OSDev wiki exceptions table). Vector 0x0F is deliberately absent from
// the CPU exception range -- INTR_TEST claims it instead (tests.h).
const (
	ExcDivideByZero          = 0x00
	ExcDebug                 = 0x01
	ExcNonMaskableInterrupt  = 0x02
	ExcBreakpoint            = 0x03
	ExcOverflow              = 0x04
	ExcBoundRangeExceeded    = 0x05
	ExcInvalidOpcode         = 0x06
	ExcDeviceNotAvailable    = 0x07
	ExcDoubleFault           = 0x08
	ExcCoprocessorSegOverrun = 0x09
	ExcInvalidTSS            = 0x0A
	ExcSegmentNotPresent     = 0x0B
	ExcStackSegmentFault     = 0x0C
	ExcGeneralProtection     = 0x0D
	ExcPageFault             = 0x0E
	ExcX87FloatingPoint      = 0x10
	ExcAlignmentCheck        = 0x11
	ExcMachineCheck          = 0x12
	ExcSIMDFloatingPoint     = 0x13
	ExcVirtualization        = 0x14
	ExcSecurityException     = 0x1E
)

// IRQ0 is the first remapped hardware IRQ vector (the standard post-PIC-
// remap placement used by every ECE391-derived bring-up, since the BIOS
// default 0x08-0x0F range collides with the CPU exception vectors above).
// IrqVec(n) gives IRQ n's action-table vector, mirroring irq.c's
// `irq_num + INTR_IRQ_MIN`.
const IRQ0 = 0x20

// IrqVec returns the action-table vector for hardware IRQ n (0..IRQ_NUM-1).
func IrqVec(n int) int { return IRQ0 + n }

// IrqNum is the inverse of IrqVec, mirroring irq.c's
// `info->intr_num - INTR_IRQ_MIN`.
func IrqNum(vec int) int { return vec - IRQ0 }

// Reserved vectors outside the CPU exception and IRQ ranges (spec.md §4.3:
// "a dedicated vector is reserved for the cooperative scheduler switch...
// another for system calls... a third is used by the test harness").
const (
	VecTest      = 0x0F // tests.h's INTR_TEST
	VecScheduler = 0x30 // first free vector past the 16 IRQ vectors (0x20-0x2F)
	VecSyscall   = 0x80 // traditional int 0x80, matching the NR_LINUX_* numbering syscall.h borrows
)

// Handler is the signature every action-table entry holds: it receives the
// vector that fired and the frame the (simulated) stub captured.
type Handler func(vec int, f *Frame_t)

// actionTable is the 256-entry vector->handler table (spec.md §4.3's
// "action table indexed by interrupt vector"), grounded on
// intr_setaction/intr_getaction/do_interrupt in interrupt.c.
var actionTable [256]Handler

// SetAction installs h as the handler for vec, mirroring intr_setaction.
func SetAction(vec int, h Handler) {
	actionTable[vec&0xff] = h
}

// GetAction returns the handler installed for vec, mirroring intr_getaction.
func GetAction(vec int) Handler {
	return actionTable[vec&0xff]
}

// ClearAction removes any handler installed for vec.
func ClearAction(vec int) {
	actionTable[vec&0xff] = nil
}

// Dispatch is the common interrupt entry point every vector funnels
// through, mirroring do_interrupt: look up the action, call it if present,
// otherwise log the unhandled vector (the original prints and continues;
// nothing here distinguishes "recoverable" from "fatal", matching it).
func Dispatch(vec int, f *Frame_t) {
	if h := GetAction(vec); h != nil {
		h(vec, f)
		return
	}
	klog.Printf("[unhandled interrupt] vector=0x%x error_code=0x%x eip=0x%x\n",
		vec, f.ErrorCode, f.Eip)
}
