package irq

import (
	"sync/atomic"

	"devicehal-go/hal/slot"
)

// Hook is the low-level handler cell a driver embeds. The driver registers
// its handler after claiming its slot and before enabling the vector.
type Hook struct {
	fn atomic.Pointer[func()]
}

// SetHandler registers fn; nil clears the registration.
func (h *Hook) SetHandler(fn func()) {
	if fn == nil {
		h.fn.Store(nil)
		return
	}
	h.fn.Store(&fn)
}

// Fire runs the registered handler and reports whether one was present.
func (h *Hook) Fire() bool {
	p := h.fn.Load()
	if p == nil {
		return false
	}
	(*p)()
	return true
}

// Trampoline returns the fixed entry point for resource index of bank. It
// reads the bound instance and fires its hook; an empty slot or a hook with
// no handler returns immediately. It takes no lock and never masks the
// source: a driver must silence its peripheral before unbinding.
func Trampoline(bank *slot.Bank[Hook], index int) func() {
	return func() {
		if h := bank.Lookup(index); h != nil {
			h.Fire()
		}
	}
}
