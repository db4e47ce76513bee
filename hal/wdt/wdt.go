// Package wdt drives the windowed watchdog. The chip has a single watchdog,
// so at most one instance exists at a time. Once started the hardware
// cannot be stopped: Deinit releases the driver but the counter keeps
// running.
package wdt

import (
	"math/bits"
	"sync/atomic"
	"time"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/clock"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/irq"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/logx"
)

// Source selects the watchdog clock.
type Source uint8

const (
	SourceIRC Source = iota
	SourceWdtOsc
	sourceCount
)

// The watchdog counter runs at a quarter of its source clock.
const prescale = 4

// Counter limits of the 24-bit timeout register.
const (
	minTicks = 0xFF
	maxTicks = 0xFF_FFFF
)

type BaseConfig struct {
	Context *hal.Context
	Source  Source
}

// Base owns the watchdog slot and its clock source.
type Base struct {
	entity.Header
	irq.Hook

	ctx    *hal.Context
	handle slot.Handle
	reg    periph.Watchdog
	source Source
}

var BaseClass = &entity.Class[*Base, BaseConfig]{
	Name: "wdt.Base",
	Init: initBase,
}

func initBase(b *Base, cfg BaseConfig) error {
	if cfg.Context == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.init", Msg: "nil context"}
	}
	if cfg.Source >= sourceCount {
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.init", Msg: "clock source"}
	}
	ctx := cfg.Context
	h, err := ctx.WDT.Bind(0, &b.Hook)
	if err != nil {
		return err
	}
	b.ctx, b.handle, b.source = ctx, h, cfg.Source
	b.reg = ctx.Board.WDT
	ctx.Clocks.Enable(clock.WWDT)
	if cfg.Source == SourceWdtOsc {
		ctx.Clocks.Enable(clock.WdtOsc)
	}
	b.reg.SelectClock(uint8(cfg.Source))
	return nil
}

// Deinit masks the warning and releases the slot. The counter and its
// clocks stay on.
func (b *Base) Deinit() {
	if b.ctx == nil {
		return
	}
	b.reg.SetWarningInterrupt(false)
	b.ctx.IRQ.Disable(b.ctx.WDTIRQ())
	b.SetHandler(nil)
	b.ctx.WDT.Unbind(0, b.handle)
	if b.reg.Running() {
		logx.Warn(logx.WDT, "released while running; feeding stops")
	}
	b.ctx = nil
}

// ClockHz returns the frequency of the selected source.
func (b *Base) ClockHz() uint32 {
	if b.source == SourceWdtOsc {
		return b.ctx.Clocks.Frequency(clock.WdtOsc)
	}
	return b.ctx.Clocks.Frequency(clock.IRC)
}

func (b *Base) Source() Source { return b.source }

type Config struct {
	Context  *hal.Context
	Source   Source
	Timeout  time.Duration
	Priority uint8 // zero selects irq.LowestPriority
}

// Wdt starts the watchdog with a fixed timeout. The callback, if any, runs
// in interrupt context when a quarter of the period is left.
type Wdt struct {
	Base
	ticks    uint32
	callback atomic.Pointer[func()]
}

var Class = &entity.Class[*Wdt, Config]{
	Name: "wdt.Wdt",
	New:  func() *Wdt { return new(Wdt) },
	Init: initWdt,
}

func init() {
	entity.Register(BaseClass)
	entity.Register(Class)
}

func initWdt(w *Wdt, cfg Config) error {
	if err := BaseClass.Init(&w.Base, BaseConfig{Context: cfg.Context, Source: cfg.Source}); err != nil {
		return err
	}
	ticks, ok := timeoutTicks(w.ClockHz(), cfg.Timeout)
	if !ok {
		w.Base.Deinit()
		return &errcode.E{C: errcode.InvalidParams, Op: "wdt.init", Msg: "timeout outside counter range"}
	}
	w.ticks = ticks
	w.reg.SetTimeout(w.ticks)
	w.SetHandler(w.serve)
	w.ctx.IRQ.ApplyPriority(w.ctx.WDTIRQ(), cfg.Priority)
	w.reg.SetWarningInterrupt(true)
	w.ctx.IRQ.Enable(w.ctx.WDTIRQ())
	w.reg.Start()
	logx.Info(logx.WDT, "started", "ticks", w.ticks, "timeout", cfg.Timeout)
	return nil
}

// timeoutTicks converts a timeout into counter ticks at hz/prescale. It
// reports false when the result falls outside the counter range.
func timeoutTicks(hz uint32, d time.Duration) (uint32, bool) {
	if d <= 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(hz/prescale), uint64(d))
	if hi >= uint64(time.Second) {
		return 0, false
	}
	ticks, _ := bits.Div64(hi, lo, uint64(time.Second))
	if ticks < minTicks || ticks > maxTicks {
		return 0, false
	}
	return uint32(ticks), true
}

// serve runs in interrupt context.
func (w *Wdt) serve() {
	if !w.reg.Warned() {
		return
	}
	w.reg.ClearWarning()
	if fn := w.callback.Load(); fn != nil {
		(*fn)()
	}
}

func (w *Wdt) SetCallback(fn func()) {
	if fn == nil {
		w.callback.Store(nil)
		return
	}
	w.callback.Store(&fn)
}

// Reload restarts the countdown.
func (w *Wdt) Reload() { w.reg.Feed() }

// Ticks returns the programmed timeout in counter ticks.
func (w *Wdt) Ticks() uint32 { return w.ticks }
