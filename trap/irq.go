package trap

// IRQNum is the number of hardware IRQ lines the controller exposes,
// matching irq.h's IRQ_NUM.
const IRQNum = 16

// IrqController is the registration/callback surface the real 8259
// (or APIC) driver implements -- an out-of-scope external collaborator
// per spec.md §1. EnableIrq/DisableIrq mirror enable_irq/disable_irq;
// SendEOI mirrors send_eoi, called once per IRQ before the IRQ-specific
// handler runs (spec.md §4.3: "a thin wrapper sends EOI to the interrupt
// controller and then calls the IRQ-specific handler").
type IrqController interface {
	EnableIrq(irq int)
	DisableIrq(irq int)
	SendEOI(irq int)
}

// IrqHandler is one hardware IRQ's handler, receiving the frame captured
// at entry.
type IrqHandler func(f *Frame_t)

var irqHandlers [IRQNum]IrqHandler

// SetIrqHandler installs handler for irq and wires it into the action
// table behind an EOI-sending wrapper, mirroring set_irq_handler: the
// wrapper (irq.c's irq_handler) looks up the IRQ-relative handler by
// subtracting IRQ0 from the vector, sends EOI, then invokes it.
func SetIrqHandler(ctrl IrqController, irq int, handler IrqHandler) {
	irqHandlers[irq] = handler
	SetAction(IrqVec(irq), func(vec int, f *Frame_t) {
		n := IrqNum(vec)
		ctrl.SendEOI(n)
		if h := irqHandlers[n]; h != nil {
			h(f)
		}
	})
	ctrl.EnableIrq(irq)
}

// ClearIrqHandler removes irq's handler and its action-table entry.
func ClearIrqHandler(ctrl IrqController, irq int) {
	ctrl.DisableIrq(irq)
	irqHandlers[irq] = nil
	ClearAction(IrqVec(irq))
}
