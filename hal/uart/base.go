// Package uart drives the 16550-style UARTs: an abstract base that owns the
// unit's slot, clock and baud divisor, and the interrupt-driven Serial port.
package uart

import (
	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/clock"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/irq"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

type BaseConfig struct {
	Context *hal.Context
	Channel int
	Rate    uint32
	Parity  uint8
}

// Base claims UART unit Channel for its lifetime. Concrete ports embed it,
// register their handler on the embedded Hook and enable the vector.
type Base struct {
	entity.Header
	irq.Hook

	ctx     *hal.Context
	channel int
	handle  slot.Handle
	reg     periph.UART
	vector  irq.IRQ
	rate    uint32
}

var BaseClass = &entity.Class[*Base, BaseConfig]{
	Name: "uart.Base",
	Init: initBase,
}

func initBase(b *Base, cfg BaseConfig) error {
	if cfg.Context == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "uart.init", Msg: "nil context"}
	}
	ctx := cfg.Context
	if !mathx.InRange(cfg.Channel, ctx.Chip.UARTs) {
		return &errcode.E{C: errcode.OutOfRange, Op: "uart.init", Msg: "channel"}
	}
	if cfg.Parity > periph.ParityOdd {
		return &errcode.E{C: errcode.InvalidParams, Op: "uart.init", Msg: "parity"}
	}
	div, err := CalcRate(ctx.Clocks.Frequency(clock.Core), cfg.Rate)
	if err != nil {
		return err
	}

	h, err := ctx.UART.Bind(cfg.Channel, &b.Hook)
	if err != nil {
		return err
	}
	b.ctx, b.channel, b.handle = ctx, cfg.Channel, h
	b.reg = ctx.Board.UART[cfg.Channel]
	b.vector = ctx.UARTIRQ(cfg.Channel)
	b.rate = cfg.Rate

	ctx.Clocks.Enable(clock.Indexed(clock.UARTPfx, b.channel))
	b.reg.SetFormat(cfg.Parity)
	b.reg.SetDivisor(div.High, div.Low, div.Fraction)
	logx.Debug(logx.UART, "bound", "channel", b.channel, "rate", cfg.Rate)
	return nil
}

// Deinit silences the unit before giving up its slot.
func (b *Base) Deinit() {
	if b.ctx == nil {
		return
	}
	b.reg.SetInterrupts(0)
	b.ctx.IRQ.Disable(b.vector)
	b.SetHandler(nil)
	b.ctx.Clocks.Disable(clock.Indexed(clock.UARTPfx, b.channel))
	b.ctx.UART.Unbind(b.channel, b.handle)
	logx.Debug(logx.UART, "unbound", "channel", b.channel)
	b.ctx = nil
}

func (b *Base) Channel() int           { return b.channel }
func (b *Base) Rate() uint32           { return b.rate }
func (b *Base) Vector() irq.IRQ        { return b.vector }
func (b *Base) Registers() periph.UART { return b.reg }

// SetRate reprograms the baud divisor.
func (b *Base) SetRate(rate uint32) error {
	div, err := CalcRate(b.ctx.Clocks.Frequency(clock.Core), rate)
	if err != nil {
		return err
	}
	b.reg.SetDivisor(div.High, div.Low, div.Fraction)
	b.rate = rate
	return nil
}

// Divisor is the content of the divisor latch registers.
type Divisor struct {
	High, Low, Fraction uint8
}

// CalcRate derives the divisor for rate from a 16x oversampled core clock.
// The fractional divider is left at its reset value.
func CalcRate(coreHz, rate uint32) (Divisor, error) {
	if rate == 0 {
		return Divisor{}, &errcode.E{C: errcode.InvalidParams, Op: "uart.rate", Msg: "zero rate"}
	}
	div := (coreHz >> 4) / rate
	if div == 0 || div >= 1<<16 {
		return Divisor{}, &errcode.E{C: errcode.InvalidParams, Op: "uart.rate", Msg: "rate outside divisor range"}
	}
	return Divisor{High: uint8(div >> 8), Low: uint8(div), Fraction: 0x10}, nil
}
