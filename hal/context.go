// Package hal owns the process-wide state every driver shares: the vector
// table, one slot bank per peripheral family, the clock controller, and the
// lazily built shared facades (the DMA handler). A Context is constructed
// once at startup, passed to every driver constructor, and never torn down.
package hal

import (
	"sync"

	"devicehal-go/errcode"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/clock"
	"devicehal-go/hal/irq"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/conv"
	"devicehal-go/x/logx"
)

// Board is the set of register blocks of one chip instance.
type Board struct {
	UART  []periph.UART
	Timer []periph.Timer
	SSP   []periph.SSP
	WDT   periph.Watchdog
	DMA   periph.DMA
}

type Context struct {
	Chip   chip.Variant
	Board  Board
	Clocks clock.Controller
	IRQ    *irq.Controller

	UART  *slot.Bank[irq.Hook]
	Timer *slot.Bank[irq.Hook]
	SSP   *slot.Bank[irq.Hook]
	WDT   *slot.Bank[irq.Hook]

	mu     sync.Mutex
	shared map[string]any
}

// New builds the context for variant v and installs the trampoline of every
// single-unit vector. Board blocks that do not match v are a wiring fault.
func New(v chip.Variant, b Board, clocks clock.Controller) *Context {
	v = v.Validate()
	if len(b.UART) != v.UARTs || len(b.Timer) != v.Timers || len(b.SSP) != v.SSPs || b.WDT == nil || b.DMA == nil {
		errcode.Fault("hal.new", "board does not match variant "+v.Name)
	}
	c := &Context{
		Chip:   v,
		Board:  b,
		Clocks: clocks,
		IRQ:    irq.NewController(v.IRQ.Count),
		UART:   slot.NewBank[irq.Hook]("uart", v.UARTs, 2*v.UARTs),
		Timer:  slot.NewBank[irq.Hook]("timer", v.Timers, 2*v.Timers),
		SSP:    slot.NewBank[irq.Hook]("ssp", v.SSPs, 2*v.SSPs),
		WDT:    slot.NewBank[irq.Hook]("wdt", 1, 2),
		shared: map[string]any{},
	}
	c.installBank(c.UART, v.IRQ.UART)
	c.installBank(c.Timer, v.IRQ.Timer)
	c.installBank(c.SSP, v.IRQ.SSP)
	c.installBank(c.WDT, []int{v.IRQ.WDT})
	logx.Info(logx.IRQ, "context ready", "chip", v.Name, "vectors", v.IRQ.Count)
	return c
}

func (c *Context) installBank(b *slot.Bank[irq.Hook], vectors []int) {
	for i, n := range vectors {
		c.IRQ.Install(irq.IRQ(n), b.Name()+conv.Itoa(i), irq.Trampoline(b, i))
	}
}

// Vector numbers of the single-unit peripherals.
func (c *Context) UARTIRQ(n int) irq.IRQ  { return irq.IRQ(c.Chip.IRQ.UART[n]) }
func (c *Context) TimerIRQ(n int) irq.IRQ { return irq.IRQ(c.Chip.IRQ.Timer[n]) }
func (c *Context) SSPIRQ(n int) irq.IRQ   { return irq.IRQ(c.Chip.IRQ.SSP[n]) }
func (c *Context) WDTIRQ() irq.IRQ        { return irq.IRQ(c.Chip.IRQ.WDT) }
func (c *Context) DMAIRQ() irq.IRQ        { return irq.IRQ(c.Chip.IRQ.DMA) }

// Shared returns the facade stored under key, building it on first use.
// Facades live as long as the context.
func (c *Context) Shared(key string, build func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.shared[key]; ok {
		return v
	}
	v := build()
	c.shared[key] = v
	logx.Debug(logx.Entity, "shared facade built", "key", key)
	return v
}

// Peek returns the facade under key without building it.
func (c *Context) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.shared[key]
	return v, ok
}
