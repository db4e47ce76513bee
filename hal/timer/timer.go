// Package timer drives the match timers as periodic tick sources.
package timer

import (
	"sync/atomic"

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

// Timer is the capability of a periodic tick source.
type Timer interface {
	entity.Entity
	// SetCallback registers fn to run in interrupt context on every
	// overflow.
	SetCallback(fn func())
	SetEnabled(on bool)
	// SetFrequency sets the tick rate of the counter in Hz.
	SetFrequency(hz uint32) error
	// SetOverflow sets the number of ticks per period.
	SetOverflow(ticks uint32) error
}

type Config struct {
	Context   *hal.Context
	Channel   int
	Frequency uint32
	Overflow  uint32
	Priority  uint8 // zero selects irq.LowestPriority
}

// BaseTimer counts at Frequency and overflows every Overflow ticks using
// match register 0.
type BaseTimer struct {
	entity.Header
	irq.Hook

	ctx      *hal.Context
	channel  int
	handle   slot.Handle
	reg      periph.Timer
	vector   irq.IRQ
	freq     uint32
	overflow uint32
	callback atomic.Pointer[func()]
}

var _ Timer = (*BaseTimer)(nil)

var Class = &entity.Class[*BaseTimer, Config]{
	Name: "timer.BaseTimer",
	New:  func() *BaseTimer { return new(BaseTimer) },
	Init: initTimer,
}

func init() { entity.Register(Class) }

func initTimer(t *BaseTimer, cfg Config) error {
	if cfg.Context == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "timer.init", Msg: "nil context"}
	}
	ctx := cfg.Context
	if !mathx.InRange(cfg.Channel, ctx.Chip.Timers) {
		return &errcode.E{C: errcode.OutOfRange, Op: "timer.init", Msg: "channel"}
	}
	h, err := ctx.Timer.Bind(cfg.Channel, &t.Hook)
	if err != nil {
		return err
	}
	t.ctx, t.channel, t.handle = ctx, cfg.Channel, h
	t.reg = ctx.Board.Timer[cfg.Channel]
	t.vector = ctx.TimerIRQ(cfg.Channel)
	ctx.Clocks.Enable(clock.Indexed(clock.TimerPfx, t.channel))

	if err := t.SetFrequency(cfg.Frequency); err != nil {
		t.Deinit()
		return err
	}
	if cfg.Overflow != 0 {
		if err := t.SetOverflow(cfg.Overflow); err != nil {
			t.Deinit()
			return err
		}
	}
	t.SetHandler(t.serve)
	ctx.IRQ.ApplyPriority(t.vector, cfg.Priority)
	t.reg.SetMatchInterrupt(true)
	ctx.IRQ.Enable(t.vector)
	logx.Debug(logx.Timer, "bound", "channel", t.channel, "hz", t.freq)
	return nil
}

// serve runs in interrupt context.
func (t *BaseTimer) serve() {
	if t.reg.Flags()&periph.TimerMatch0 == 0 {
		return
	}
	if fn := t.callback.Load(); fn != nil {
		(*fn)()
	}
	t.reg.ClearFlags(periph.TimerMatch0)
}

func (t *BaseTimer) SetCallback(fn func()) {
	if fn == nil {
		t.callback.Store(nil)
		return
	}
	t.callback.Store(&fn)
}

func (t *BaseTimer) SetEnabled(on bool) { t.reg.SetRunning(on) }
func (t *BaseTimer) Enabled() bool      { return t.reg.Running() }

func (t *BaseTimer) SetFrequency(hz uint32) error {
	core := t.ctx.Clocks.Frequency(clock.Indexed(clock.TimerPfx, t.channel))
	if hz == 0 || hz > core {
		return &errcode.E{C: errcode.InvalidParams, Op: "timer.frequency", Msg: "outside 1..core clock"}
	}
	t.reg.SetPrescaler(core / hz)
	t.freq = hz
	return nil
}

func (t *BaseTimer) SetOverflow(ticks uint32) error {
	if ticks == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "timer.overflow", Msg: "zero period"}
	}
	t.reg.SetMatch(ticks)
	t.overflow = ticks
	return nil
}

func (t *BaseTimer) Frequency() uint32 { return t.freq }
func (t *BaseTimer) Overflow() uint32  { return t.overflow }
func (t *BaseTimer) Channel() int      { return t.channel }

func (t *BaseTimer) Deinit() {
	if t.ctx == nil {
		return
	}
	t.reg.SetRunning(false)
	t.reg.SetMatchInterrupt(false)
	t.ctx.IRQ.Disable(t.vector)
	t.SetHandler(nil)
	t.ctx.Clocks.Disable(clock.Indexed(clock.TimerPfx, t.channel))
	t.ctx.Timer.Unbind(t.channel, t.handle)
	logx.Debug(logx.Timer, "unbound", "channel", t.channel)
	t.ctx = nil
}
