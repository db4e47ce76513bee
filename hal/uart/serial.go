package uart

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/periph"
	"devicehal-go/x/logx"
	"devicehal-go/x/shmring"
)

const (
	defaultTxBuffer = 64
	defaultRxBuffer = 64
)

type Config struct {
	Context  *hal.Context
	Channel  int
	Rate     uint32
	Parity   uint8
	TxBuffer int   // power of two; zero selects the default
	RxBuffer int   // power of two; zero selects the default
	Priority uint8 // zero selects irq.LowestPriority
}

// Serial is an interrupt-driven port. The handler pushes received bytes
// into a lock-free ring that readers move into the receive buffer; writes
// queue into a transmit ring the handler drains while the holding register
// is empty.
type Serial struct {
	Base

	rxq     *shmring.Ring // handler produces, readers consume under rxMu
	dropped atomic.Uint32
	rxMu    sync.Mutex // readers only; never taken by the handler
	rx      *uartx.UART

	tx    *shmring.Ring
	carry int // byte the holding register refused, or -1; handler only
}

var Class = &entity.Class[*Serial, Config]{
	Name: "uart.Serial",
	New:  func() *Serial { return new(Serial) },
	Init: initSerial,
}

func init() {
	entity.Register(BaseClass)
	entity.Register(Class)
}

func initSerial(s *Serial, cfg Config) error {
	if err := BaseClass.Init(&s.Base, BaseConfig{
		Context: cfg.Context,
		Channel: cfg.Channel,
		Rate:    cfg.Rate,
		Parity:  cfg.Parity,
	}); err != nil {
		return err
	}
	txSize, rxSize := cfg.TxBuffer, cfg.RxBuffer
	if txSize == 0 {
		txSize = defaultTxBuffer
	}
	if rxSize == 0 {
		rxSize = defaultRxBuffer
	}
	if !powerOfTwo(txSize) || !powerOfTwo(rxSize) {
		s.Base.Deinit()
		return &errcode.E{C: errcode.InvalidParams, Op: "uart.init", Msg: "buffer sizes must be powers of two"}
	}
	s.tx = shmring.New(txSize)
	s.rxq = shmring.New(rxSize)
	s.rx = new(uartx.UART)
	s.carry = -1

	s.SetHandler(s.serve)
	s.ctx.IRQ.ApplyPriority(s.vector, cfg.Priority)
	s.reg.SetInterrupts(periph.UARTIntRx)
	s.ctx.IRQ.Enable(s.vector)
	return nil
}

func powerOfTwo(n int) bool { return n >= 2 && n&(n-1) == 0 }

// serve runs in interrupt context. It takes no locks: received bytes go to
// rxq and are dropped, and counted, when readers fall behind.
func (s *Serial) serve() {
	for {
		b, ok := s.reg.ReadRx()
		if !ok {
			break
		}
		if !s.rxq.TryWriteByte(b) {
			s.dropped.Add(1)
		}
	}

	for {
		if s.carry < 0 {
			b, ok := s.tx.TryReadByte()
			if !ok {
				break
			}
			s.carry = int(b)
		}
		if !s.reg.WriteTx(byte(s.carry)) {
			return // holding register full; stay armed
		}
		s.carry = -1
	}
	if ier := s.reg.Interrupts(); ier&periph.UARTIntTx != 0 {
		s.reg.SetInterrupts(ier &^ periph.UARTIntTx)
	}
}

// Write queues p for transmission, blocking while the ring is full.
func (s *Serial) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

// WriteContext is Write bounded by ctx. It returns the number of bytes
// queued before ctx ended.
func (s *Serial) WriteContext(ctx context.Context, p []byte) (int, error) {
	sent := 0
	for sent < len(p) {
		n := s.tx.TryWriteFrom(p[sent:])
		sent += n
		if n > 0 {
			s.kick()
			continue
		}
		select {
		case <-s.tx.Writable():
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

func (s *Serial) kick() {
	s.reg.SetInterrupts(s.reg.Interrupts() | periph.UARTIntTx)
}

// pull moves bytes from the handler's ring into the receive buffer.
// Callers hold rxMu.
func (s *Serial) pull() {
	var buf [16]byte
	for {
		n := s.rxq.TryReadInto(buf[:])
		if n == 0 {
			return
		}
		for _, b := range buf[:n] {
			s.rx.Receive(b)
		}
	}
}

// Read copies buffered bytes into p without blocking.
func (s *Serial) Read(p []byte) (int, error) {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	s.pull()
	return s.rx.Read(p)
}

// ReadContext blocks until at least one byte is available or ctx ends.
func (s *Serial) ReadContext(ctx context.Context, p []byte) (int, error) {
	for {
		if n, err := s.Read(p); n > 0 || err != nil {
			return n, err
		}
		select {
		case <-s.rxq.Readable():
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (s *Serial) ReadByte() (byte, error) {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	s.pull()
	return s.rx.ReadByte()
}

// Buffered returns the number of received bytes waiting to be read.
func (s *Serial) Buffered() int {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	s.pull()
	return s.rx.Buffered()
}

// Dropped returns the number of received bytes lost because the receive
// ring was full when they arrived.
func (s *Serial) Dropped() uint32 { return s.dropped.Load() }

// Pending returns the number of bytes still queued for transmission.
func (s *Serial) Pending() int { return s.tx.Available() }

func (s *Serial) Deinit() {
	if s.ctx == nil {
		return
	}
	logx.Debug(logx.UART, "serial closed", "channel", s.channel, "dropped", s.tx.Available())
	s.Base.Deinit()
}
