// Package irq models the interrupt controller and the fixed trampolines
// that forward each vector to the driver instance bound to its resource slot.
//
// Raise plays the part of the hardware: it runs the vector's entry point on
// the calling goroutine, which stands in for interrupt context. A vector that
// is raised while its entry point is already running is latched as pending
// and the running invocation tail-chains into it, so a vector never nests.
package irq

import (
	"sync"
	"sync/atomic"

	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

// IRQ is a vector number.
type IRQ int

// LowestPriority is the reset priority of every vector.
const LowestPriority uint8 = 255

type vector struct {
	name     string
	entry    atomic.Pointer[func()]
	enabled  atomic.Bool
	pending  atomic.Bool
	active   atomic.Bool
	priority atomic.Uint32

	taken    atomic.Uint64 // entry point invocations
	spurious atomic.Uint64 // raised while no entry point installed
}

// Controller owns the vector table. Installing, enabling and priority
// changes are main-line operations; Raise may come from any goroutine.
type Controller struct {
	mu      sync.Mutex
	vectors []vector
}

// NewController returns a controller with n vectors, all disabled.
func NewController(n int) *Controller {
	c := &Controller{vectors: make([]vector, n)}
	for i := range c.vectors {
		c.vectors[i].priority.Store(uint32(LowestPriority))
	}
	return c
}

func (c *Controller) Len() int { return len(c.vectors) }

func (c *Controller) vec(n IRQ) *vector {
	if !mathx.InRange(int(n), len(c.vectors)) {
		panic("irq: vector out of range")
	}
	return &c.vectors[n]
}

// Install sets the fixed entry point of vector n. Entry points live for the
// whole process; installing twice is a wiring fault and panics.
func (c *Controller) Install(n IRQ, name string, entry func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.vec(n)
	if v.entry.Load() != nil {
		panic("irq: vector " + name + " already installed")
	}
	v.name = name
	v.entry.Store(&entry)
	logx.Debug(logx.IRQ, "install", "irq", int(n), "name", name)
}

// Enable unmasks vector n and delivers a latched request.
func (c *Controller) Enable(n IRQ) {
	v := c.vec(n)
	v.enabled.Store(true)
	if v.pending.Load() {
		c.deliver(v)
	}
}

// Disable masks vector n. Requests raised while masked stay pending.
func (c *Controller) Disable(n IRQ) { c.vec(n).enabled.Store(false) }

func (c *Controller) Enabled(n IRQ) bool { return c.vec(n).enabled.Load() }

func (c *Controller) Pending(n IRQ) bool { return c.vec(n).pending.Load() }

// ClearPending drops a latched request without running the entry point.
func (c *Controller) ClearPending(n IRQ) { c.vec(n).pending.Store(false) }

func (c *Controller) SetPriority(n IRQ, prio uint8) { c.vec(n).priority.Store(uint32(prio)) }

// ApplyPriority is SetPriority for driver configs, where zero selects
// LowestPriority.
func (c *Controller) ApplyPriority(n IRQ, prio uint8) {
	if prio == 0 {
		prio = LowestPriority
	}
	c.SetPriority(n, prio)
}

func (c *Controller) Priority(n IRQ) uint8 { return uint8(c.vec(n).priority.Load()) }

// Raise asserts vector n. When enabled the entry point runs before Raise
// returns, otherwise the request is latched.
func (c *Controller) Raise(n IRQ) {
	v := c.vec(n)
	v.pending.Store(true)
	if v.enabled.Load() {
		c.deliver(v)
	}
}

func (c *Controller) deliver(v *vector) {
	if !v.active.CompareAndSwap(false, true) {
		return // running invocation picks up the pending flag
	}
	for {
		for v.enabled.Load() && v.pending.CompareAndSwap(true, false) {
			if e := v.entry.Load(); e != nil {
				v.taken.Add(1)
				(*e)()
			} else {
				v.spurious.Add(1)
			}
		}
		v.active.Store(false)
		// A request raised between the last check and clearing active would
		// otherwise be stranded.
		if !v.enabled.Load() || !v.pending.Load() || !v.active.CompareAndSwap(false, true) {
			return
		}
	}
}

// Stat is a snapshot of one vector's counters.
type Stat struct {
	IRQ      IRQ
	Name     string
	Enabled  bool
	Pending  bool
	Priority uint8
	Taken    uint64
	Spurious uint64
}

// Stats returns a snapshot of every installed vector.
func (c *Controller) Stats() []Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Stat, 0, len(c.vectors))
	for i := range c.vectors {
		v := &c.vectors[i]
		if v.entry.Load() == nil {
			continue
		}
		out = append(out, Stat{
			IRQ:      IRQ(i),
			Name:     v.name,
			Enabled:  v.enabled.Load(),
			Pending:  v.pending.Load(),
			Priority: uint8(v.priority.Load()),
			Taken:    v.taken.Load(),
			Spurious: v.spurious.Load(),
		})
	}
	return out
}
