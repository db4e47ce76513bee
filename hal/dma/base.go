package dma

import (
	"sync/atomic"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

// BaseConfig selects a channel and the request it serves. Event is ignored
// for memory-to-memory channels.
type BaseConfig struct {
	Context *hal.Context
	Channel int
	Event   chip.Event
	Kind    Kind
}

// ChannelBase is the abstract state of every DMA channel. It holds the
// channel number and the multiplexer inputs reserved for its request, and
// attaches the shared handler for its lifetime. The slot of the channel is
// only held while a transfer runs.
type ChannelBase struct {
	entity.Header

	h         *Handler
	number    int
	kind      Kind
	handle    slot.Handle
	srcPeriph int
	dstPeriph int
	mux       Setting

	onInterrupt atomic.Pointer[func(error)]
}

// BaseClass is abstract; concrete channels call its Init first.
var BaseClass = &entity.Class[*ChannelBase, BaseConfig]{
	Name: "dma.ChannelBase",
	Init: initBase,
}

func initBase(c *ChannelBase, cfg BaseConfig) error {
	if cfg.Context == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "dma.init", Msg: "nil context"}
	}
	h := For(cfg.Context)
	if !mathx.InRange(cfg.Channel, h.Channels()) {
		return &errcode.E{C: errcode.OutOfRange, Op: "dma.init", Msg: "channel"}
	}
	if cfg.Kind > PeriphToMem {
		return &errcode.E{C: errcode.InvalidParams, Op: "dma.init", Msg: "kind"}
	}
	c.h, c.number, c.kind = h, cfg.Channel, cfg.Kind
	c.srcPeriph, c.dstPeriph = periph.Memory, periph.Memory
	c.mux = NoSetting()

	// Allocate faults on an unroutable event, so it runs before anything
	// is held.
	if cfg.Kind.needsMux() {
		input, s := h.mux.Allocate(cfg.Event)
		c.mux = c.mux.Merge(s)
		if cfg.Kind == MemToPeriph {
			c.dstPeriph = input
		} else {
			c.srcPeriph = input
		}
	}
	handle, err := h.bank.Register(c)
	if err != nil {
		h.mux.Free(c.mux)
		c.mux = NoSetting()
		c.h = nil
		return err
	}
	c.handle = handle
	h.gate.Attach()
	logx.Debug(logx.DMA, "channel attached", "channel", c.number, "kind", c.kind.String(), "refs", h.gate.Refs())
	return nil
}

// Deinit returns the multiplexer inputs, drops the slot if this channel
// still holds it and detaches the handler.
func (c *ChannelBase) Deinit() {
	if c.h == nil {
		return
	}
	c.onInterrupt.Store(nil)
	c.h.bank.Unbind(c.number, c.handle)
	c.h.mux.Free(c.mux)
	c.mux = NoSetting()
	c.h.gate.Detach()
	logx.Debug(logx.DMA, "channel detached", "channel", c.number, "refs", c.h.gate.Refs())
	c.h = nil
}

func (c *ChannelBase) Number() int                 { return c.number }
func (c *ChannelBase) Kind() Kind                  { return c.kind }
func (c *ChannelBase) MuxSetting() Setting         { return c.mux }
func (c *ChannelBase) Handler() *Handler           { return c.h }
func (c *ChannelBase) Peripherals() (src, dst int) { return c.srcPeriph, c.dstPeriph }

// SetInterruptHandler registers fn to receive the outcome of every
// interrupt raised for this channel while it holds its slot.
func (c *ChannelBase) SetInterruptHandler(fn func(status error)) {
	if fn == nil {
		c.onInterrupt.Store(nil)
		return
	}
	c.onInterrupt.Store(&fn)
}

// Owned reports whether this channel currently holds its slot.
func (c *ChannelBase) Owned() bool {
	return c.h != nil && c.h.bank.Load(c.number) == c.handle
}

func (c *ChannelBase) interrupt(res error) {
	if fn := c.onInterrupt.Load(); fn != nil {
		(*fn)(res)
	}
}
