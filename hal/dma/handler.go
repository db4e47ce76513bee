package dma

import (
	"sync"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/clock"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/conv"
	"devicehal-go/x/logx"
)

const sharedKey = "dma"

// Handler is the controller-wide facade shared by every channel: the slot
// table, the multiplexer allocator, the clock gate and the single vector all
// channels report through. It is built on first use and lives as long as the
// context.
type Handler struct {
	ctx  *hal.Context
	hw   periph.DMA
	mux  *Mux
	bank *slot.Bank[ChannelBase]
	gate *clock.Gate

	muxMu sync.Mutex
}

// InstancesPerChannel bounds how many live channel objects may share one
// hardware channel. Channels claim their slot only while a transfer runs, so
// several objects per channel can coexist; constructing more than
// InstancesPerChannel*channels fails with errcode.Exhausted.
const InstancesPerChannel = 8

// For returns the handler of ctx, building it on first call.
func For(ctx *hal.Context) *Handler {
	return ctx.Shared(sharedKey, func() any { return newHandler(ctx) }).(*Handler)
}

func newHandler(ctx *hal.Context) *Handler {
	v := ctx.Chip
	h := &Handler{
		ctx:  ctx,
		hw:   ctx.Board.DMA,
		mux:  NewMux(v.MuxMenus, v.MuxFieldWidth),
		bank: slot.NewBank[ChannelBase]("dma", v.DMAChannels, InstancesPerChannel*v.DMAChannels),
	}
	h.gate = clock.NewGate("gpdma", h.powerOn, h.powerOff)
	ctx.IRQ.Install(ctx.DMAIRQ(), "gpdma", h.ServeInterrupt)
	logx.Debug(logx.DMA, "handler ready", "channels", v.DMAChannels, "inputs", len(v.MuxMenus))
	return h
}

func (h *Handler) powerOn() {
	h.ctx.Clocks.Enable(clock.GPDMA)
	h.hw.SetEnabled(true)
	h.ctx.IRQ.Enable(h.ctx.DMAIRQ())
}

func (h *Handler) powerOff() {
	h.ctx.IRQ.Disable(h.ctx.DMAIRQ())
	h.hw.SetEnabled(false)
	h.ctx.Clocks.Disable(clock.GPDMA)
}

func (h *Handler) Mux() *Mux             { return h.mux }
func (h *Handler) Slots() *slot.Table    { return h.bank.Table }
func (h *Handler) Attached() int         { return h.gate.Refs() }
func (h *Handler) Channels() int         { return h.bank.Len() }
func (h *Handler) Hardware() periph.DMA  { return h.hw }
func (h *Handler) Context() *hal.Context { return h.ctx }

// Instances returns the number of live channel objects.
func (h *Handler) Instances() int { return h.bank.Arena().Len() }

// Descriptor returns the channel currently holding slot ch, or nil.
func (h *Handler) Descriptor(ch int) *ChannelBase {
	return h.bank.Lookup(ch)
}

// SetDescriptor claims slot ch for c. It fails with errcode.Busy while
// another transfer owns the channel.
func (h *Handler) SetDescriptor(ch int, c *ChannelBase) error {
	return h.bank.Claim(ch, c.handle)
}

// SetupMux writes c's multiplexer setting into the shared register.
func (h *Handler) SetupMux(c *ChannelBase) {
	h.muxMu.Lock()
	reg := c.mux.Apply(h.hw.Mux())
	h.hw.SetMux(reg)
	h.muxMu.Unlock()
	logx.Debug(logx.DMA, "mux", "channel", c.number, "reg", string(conv.AppendHex32(nil, reg)))
}

// ServeInterrupt is the entry point of the DMA vector. For every channel
// with a latched flag it resolves the bound channel and passes it the
// outcome: nil when the hardware has disabled the channel (the slot is
// released first), errcode.Busy when the channel is still running, and
// errcode.TransferError when the error flag is set.
func (h *Handler) ServeInterrupt() {
	term, errs := h.hw.Status()
	h.hw.Clear(term, errs)
	active := term | errs
	for ch := 0; active != 0 && ch < h.bank.Len(); ch++ {
		bit := uint32(1) << ch
		if active&bit == 0 {
			continue
		}
		active &^= bit
		c := h.bank.Lookup(ch)
		if c == nil {
			continue
		}
		var res error
		if h.hw.ChannelEnabled(ch) {
			res = errcode.Busy
		} else {
			h.bank.Release(ch)
		}
		if errs&bit != 0 {
			res = errcode.TransferError
		}
		c.interrupt(res)
	}
}
