package dma

import (
	"sync/atomic"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/periph"
	"devicehal-go/x/logx"
)

// Config configures a GpDma channel.
type Config struct {
	Context *hal.Context
	Channel int
	Event   chip.Event
	Kind    Kind
	Burst   Burst
	Width   Width

	SrcIncrement bool
	DstIncrement bool
}

// GpDma is a channel of the general-purpose DMA controller.
type GpDma struct {
	ChannelBase

	burst  Burst
	width  Width
	srcInc bool
	dstInc bool

	callback atomic.Pointer[func()]
	failed   atomic.Bool
}

var _ Dma = (*GpDma)(nil)

var Class = &entity.Class[*GpDma, Config]{
	Name: "dma.GpDma",
	New:  func() *GpDma { return new(GpDma) },
	Init: initGpDma,
}

func init() {
	entity.Register(BaseClass)
	entity.Register(Class)
}

func initGpDma(d *GpDma, cfg Config) error {
	if err := BaseClass.Init(&d.ChannelBase, BaseConfig{
		Context: cfg.Context,
		Channel: cfg.Channel,
		Event:   cfg.Event,
		Kind:    cfg.Kind,
	}); err != nil {
		return err
	}
	if cfg.Burst > Burst256 || cfg.Width > WidthWord {
		d.ChannelBase.Deinit()
		return &errcode.E{C: errcode.InvalidParams, Op: "dma.init", Msg: "burst or width"}
	}
	d.burst, d.width = cfg.Burst, cfg.Width
	d.srcInc, d.dstInc = cfg.SrcIncrement, cfg.DstIncrement
	d.SetInterruptHandler(d.serve)
	return nil
}

// serve runs in interrupt context.
func (d *GpDma) serve(res error) {
	if res == errcode.Busy {
		return
	}
	d.failed.Store(res != nil)
	if fn := d.callback.Load(); fn != nil {
		(*fn)()
	}
}

func (d *GpDma) SetCallback(fn func()) {
	if fn == nil {
		d.callback.Store(nil)
		return
	}
	d.callback.Store(&fn)
}

func (d *GpDma) Count() int {
	if !d.Owned() {
		return 0
	}
	return d.h.hw.Remaining(d.number)
}

func (d *GpDma) Reconfigure(cfg RuntimeConfig) error {
	if d.Owned() {
		return errcode.Busy
	}
	d.srcInc, d.dstInc = cfg.SrcIncrement, cfg.DstIncrement
	return nil
}

// Start claims the channel and programs one transfer. The memory sides are
// the given buffers; the peripheral side of a m2p or p2m channel is the
// request line it was constructed for, and its buffer argument is ignored.
func (d *GpDma) Start(dst, src []byte) error {
	if d.h == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "dma.start", Msg: "channel not initialised"}
	}
	var size int
	switch d.kind {
	case MemToMem:
		size = min(len(dst), len(src))
	case MemToPeriph:
		size, dst = len(src), nil
	case PeriphToMem:
		size, src = len(dst), nil
	}
	if size == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "dma.start", Msg: "empty transfer"}
	}
	if err := d.h.SetDescriptor(d.number, &d.ChannelBase); err != nil {
		return err
	}
	d.failed.Store(false)
	d.h.SetupMux(&d.ChannelBase)
	d.h.hw.Start(d.number, periph.DMARequest{
		SrcPeriph: d.srcPeriph,
		DstPeriph: d.dstPeriph,
		Src:       src,
		Dst:       dst,
		Size:      size,
		SrcInc:    d.srcInc,
		DstInc:    d.dstInc,
		Burst:     uint8(d.burst),
		Width:     uint8(d.width),
	})
	logx.Debug(logx.DMA, "start", "channel", d.number, "size", size)
	return nil
}

func (d *GpDma) Status() error {
	switch {
	case d.Owned():
		return errcode.Busy
	case d.failed.Load():
		return errcode.TransferError
	}
	return nil
}

// Stop halts a running transfer and releases the channel. The callback is
// not invoked.
func (d *GpDma) Stop() {
	if !d.Owned() {
		return
	}
	d.h.hw.Halt(d.number)
	d.h.bank.ReleaseOwned(d.number, d.handle)
}

func (d *GpDma) Deinit() {
	if d.h == nil {
		return
	}
	d.Stop()
	d.ChannelBase.Deinit()
}
