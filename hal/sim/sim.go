// Package sim models the register blocks of a chip variant in memory so the
// drivers run unchanged on a host. Interrupt-capable blocks assert their
// vector through the context's controller, which runs the entry point on
// the asserting goroutine.
package sim

import (
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/periph"
)

// Chip is one simulated chip instance.
type Chip struct {
	Variant chip.Variant
	SysCon  *SysCon
	UART    []*UART
	Timer   []*Timer
	SSP     []*SSP
	WDT     *Watchdog
	DMA     *DMA
}

func NewChip(v chip.Variant) *Chip {
	c := &Chip{
		Variant: v,
		SysCon:  NewSysCon(v),
		WDT:     NewWatchdog(),
		DMA:     NewDMA(v),
	}
	for i := 0; i < v.UARTs; i++ {
		c.UART = append(c.UART, NewUART())
	}
	for i := 0; i < v.Timers; i++ {
		c.Timer = append(c.Timer, NewTimer())
	}
	for i := 0; i < v.SSPs; i++ {
		s := NewSSP()
		c.SSP = append(c.SSP, s)
		tx, rx := chip.SSPEvents(i)
		c.DMA.Connect(tx, s)
		c.DMA.Connect(rx, s)
	}
	for i := 0; i < v.UARTs; i++ {
		tx, rx := chip.UARTEvents(i)
		c.DMA.Connect(tx, c.UART[i])
		c.DMA.Connect(rx, c.UART[i])
	}
	return c
}

func (c *Chip) Board() hal.Board {
	b := hal.Board{WDT: c.WDT, DMA: c.DMA}
	for _, u := range c.UART {
		b.UART = append(b.UART, u)
	}
	for _, t := range c.Timer {
		b.Timer = append(b.Timer, t)
	}
	for _, s := range c.SSP {
		b.SSP = append(b.SSP, s)
	}
	return b
}

// NewContext builds a simulated chip for v and the context wired to it.
func NewContext(v chip.Variant) (*hal.Context, *Chip) {
	c := NewChip(v)
	ctx := hal.New(v, c.Board(), c.SysCon)
	for i, u := range c.UART {
		n := ctx.UARTIRQ(i)
		u.raise = func() { ctx.IRQ.Raise(n) }
	}
	for i, t := range c.Timer {
		n := ctx.TimerIRQ(i)
		t.raise = func() { ctx.IRQ.Raise(n) }
	}
	for i, s := range c.SSP {
		n := ctx.SSPIRQ(i)
		s.raise = func() { ctx.IRQ.Raise(n) }
	}
	wdt, dma := ctx.WDTIRQ(), ctx.DMAIRQ()
	c.WDT.raise = func() { ctx.IRQ.Raise(wdt) }
	c.DMA.raise = func() { ctx.IRQ.Raise(dma) }
	return ctx, c
}

var (
	_ periph.UART     = (*UART)(nil)
	_ periph.Timer    = (*Timer)(nil)
	_ periph.SSP      = (*SSP)(nil)
	_ periph.Watchdog = (*Watchdog)(nil)
	_ periph.DMA      = (*DMA)(nil)
)

func fire(raise func()) {
	if raise != nil {
		raise()
	}
}
