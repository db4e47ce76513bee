// Package spi drives the synchronous serial ports as SPI masters. Both
// directions of a transfer run on DMA channels, so a Tx costs two
// interrupts regardless of its length.
package spi

import (
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/clock"
	"devicehal-go/hal/dma"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/irq"
	"devicehal-go/hal/periph"
	"devicehal-go/hal/slot"
	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

// DefaultTimeout bounds one Tx.
const DefaultTimeout = 100 * time.Millisecond

type Config struct {
	Context *hal.Context
	Channel int
	Rate    uint32
	Mode    uint8 // clock polarity and phase, 0..3

	// DMA channels carrying the transmit and receive streams.
	TxDMA int
	RxDMA int

	Priority uint8 // zero selects irq.LowestPriority
	Timeout  time.Duration
}

// SPI is a DMA-backed bus master.
type SPI struct {
	entity.Header
	irq.Hook

	ctx     *hal.Context
	channel int
	handle  slot.Handle
	reg     periph.SSP
	vector  irq.IRQ
	timeout time.Duration

	tx, rx         *dma.GpDma
	txDone, rxDone chan struct{}

	mu       sync.Mutex // one Tx at a time
	scratch  []byte
	overruns atomic.Uint32
}

var _ drivers.SPI = (*SPI)(nil)

var Class = &entity.Class[*SPI, Config]{
	Name: "spi.SPI",
	New:  func() *SPI { return new(SPI) },
	Init: initSPI,
}

func init() { entity.Register(Class) }

func initSPI(s *SPI, cfg Config) (err error) {
	if cfg.Context == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "spi.init", Msg: "nil context"}
	}
	ctx := cfg.Context
	if !mathx.InRange(cfg.Channel, ctx.Chip.SSPs) {
		return &errcode.E{C: errcode.OutOfRange, Op: "spi.init", Msg: "channel"}
	}
	if cfg.Mode > 3 {
		return &errcode.E{C: errcode.InvalidParams, Op: "spi.init", Msg: "mode"}
	}
	core := ctx.Clocks.Frequency(clock.Indexed(clock.SSPPfx, cfg.Channel))
	if cfg.Rate == 0 || cfg.Rate > core/2 {
		return &errcode.E{C: errcode.InvalidParams, Op: "spi.init", Msg: "rate"}
	}

	h, err := ctx.SSP.Bind(cfg.Channel, &s.Hook)
	if err != nil {
		return err
	}
	s.ctx, s.channel, s.handle = ctx, cfg.Channel, h
	s.reg = ctx.Board.SSP[cfg.Channel]
	s.vector = ctx.SSPIRQ(cfg.Channel)
	s.timeout = cfg.Timeout
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	defer func() {
		if err != nil {
			s.Deinit()
		}
	}()
	ctx.Clocks.Enable(clock.Indexed(clock.SSPPfx, s.channel))
	s.reg.SetClockDivider(mathx.RoundDiv(core, cfg.Rate))
	s.reg.SetMode(cfg.Mode)

	txEv, rxEv := chip.SSPEvents(cfg.Channel)
	s.rx, err = entity.Init(dma.Class, dma.Config{
		Context: ctx, Channel: cfg.RxDMA, Event: rxEv, Kind: dma.PeriphToMem, DstIncrement: true,
	})
	if err != nil {
		return err
	}
	s.tx, err = entity.Init(dma.Class, dma.Config{
		Context: ctx, Channel: cfg.TxDMA, Event: txEv, Kind: dma.MemToPeriph, SrcIncrement: true,
	})
	if err != nil {
		return err
	}
	s.txDone = make(chan struct{}, 1)
	s.rxDone = make(chan struct{}, 1)
	s.tx.SetCallback(func() { signal(s.txDone) })
	s.rx.SetCallback(func() { signal(s.rxDone) })

	s.SetHandler(s.serve)
	ctx.IRQ.ApplyPriority(s.vector, cfg.Priority)
	s.reg.SetOverrunInterrupt(true)
	ctx.IRQ.Enable(s.vector)
	s.reg.SetDMA(true, true)
	logx.Debug(logx.SPI, "bound", "channel", s.channel, "rate", cfg.Rate, "tx_dma", cfg.TxDMA, "rx_dma", cfg.RxDMA)
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// serve runs in interrupt context.
func (s *SPI) serve() {
	if s.reg.Overrun() {
		s.overruns.Add(1)
		s.reg.ClearOverrun()
	}
}

// Tx clocks out w while clocking in r. A nil or short w is padded with
// zeros; a nil or short r discards the excess.
func (s *SPI) Tx(w, r []byte) error {
	n := max(len(w), len(r))
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := w
	if len(out) < n {
		out = s.buffer(n)
		clear(out)
		copy(out, w)
	}
	in := r
	if len(in) < n {
		in = make([]byte, n)
	}
	drain(s.txDone)
	drain(s.rxDone)

	if err := s.rx.Start(in[:n], nil); err != nil {
		return err
	}
	if err := s.tx.Start(nil, out[:n]); err != nil {
		s.rx.Stop()
		return err
	}

	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	for pending := 2; pending > 0; pending-- {
		select {
		case <-s.txDone:
		case <-s.rxDone:
		case <-deadline.C:
			s.tx.Stop()
			s.rx.Stop()
			logx.Warn(logx.SPI, "transfer timed out", "channel", s.channel, "len", n)
			return &errcode.E{C: errcode.Timeout, Op: "spi.tx"}
		}
	}
	if err := s.tx.Status(); err != nil {
		return &errcode.E{C: errcode.Of(err), Op: "spi.tx", Msg: "transmit"}
	}
	if err := s.rx.Status(); err != nil {
		return &errcode.E{C: errcode.Of(err), Op: "spi.tx", Msg: "receive"}
	}
	if len(r) > 0 && len(r) < n {
		copy(r, in)
	}
	return nil
}

func (s *SPI) buffer(n int) []byte {
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	return s.scratch[:n]
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

// Transfer exchanges a single byte.
func (s *SPI) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := s.Tx([]byte{b}, r[:])
	return r[0], err
}

// Overruns returns how many receive overruns the port reported.
func (s *SPI) Overruns() uint32 { return s.overruns.Load() }

func (s *SPI) Channel() int { return s.channel }

func (s *SPI) Deinit() {
	if s.ctx == nil {
		return
	}
	s.reg.SetDMA(false, false)
	s.reg.SetOverrunInterrupt(false)
	s.ctx.IRQ.Disable(s.vector)
	s.SetHandler(nil)
	if s.tx != nil {
		entity.Deinit(s.tx)
		s.tx = nil
	}
	if s.rx != nil {
		entity.Deinit(s.rx)
		s.rx = nil
	}
	s.ctx.Clocks.Disable(clock.Indexed(clock.SSPPfx, s.channel))
	s.ctx.SSP.Unbind(s.channel, s.handle)
	logx.Debug(logx.SPI, "unbound", "channel", s.channel)
	s.ctx = nil
}
