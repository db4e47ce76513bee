package sim

import (
	"sync"

	"devicehal-go/hal/periph"
)

const uartFIFO = 16

// UART is a 16550-style block. Transmitted bytes leave immediately and
// collect on the wire; received bytes are pushed with Inject.
type UART struct {
	mu       sync.Mutex
	divisor  [3]uint8
	parity   uint8
	ier      uint8
	rx       []byte
	wire     []byte
	overruns int
	raise    func()
}

func NewUART() *UART { return &UART{} }

func (u *UART) SetDivisor(high, low, fraction uint8) {
	u.mu.Lock()
	u.divisor = [3]uint8{high, low, fraction}
	u.mu.Unlock()
}

func (u *UART) Divisor() (high, low, fraction uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.divisor[0], u.divisor[1], u.divisor[2]
}

func (u *UART) SetFormat(parity uint8) {
	u.mu.Lock()
	u.parity = parity
	u.mu.Unlock()
}

func (u *UART) Parity() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.parity
}

// SetInterrupts asserts the vector when a newly enabled source is already
// pending.
func (u *UART) SetInterrupts(mask uint8) {
	u.mu.Lock()
	u.ier = mask
	assert := u.asserted()&mask != 0
	u.mu.Unlock()
	if assert {
		fire(u.raise)
	}
}

func (u *UART) Interrupts() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ier
}

func (u *UART) Pending() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.asserted() & u.ier
}

// asserted: the transmit holding register is always empty.
func (u *UART) asserted() uint8 {
	s := periph.UARTIntTx
	if len(u.rx) > 0 {
		s |= periph.UARTIntRx
	}
	return s
}

func (u *UART) ReadRx() (byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.rx) == 0 {
		return 0, false
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, true
}

func (u *UART) WriteTx(b byte) bool {
	u.mu.Lock()
	u.wire = append(u.wire, b)
	u.mu.Unlock()
	return true
}

// Inject delivers bytes from the line. Bytes arriving to a full FIFO are
// dropped and counted as overruns.
func (u *UART) Inject(p []byte) {
	u.mu.Lock()
	for _, b := range p {
		if len(u.rx) >= uartFIFO {
			u.overruns++
			continue
		}
		u.rx = append(u.rx, b)
	}
	assert := len(u.rx) > 0 && u.ier&periph.UARTIntRx != 0
	u.mu.Unlock()
	if assert {
		fire(u.raise)
	}
}

// Wire returns and clears the bytes transmitted so far.
func (u *UART) Wire() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	w := u.wire
	u.wire = nil
	return w
}

func (u *UART) Overruns() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.overruns
}

// DMAWrite is the transmit request line.
func (u *UART) DMAWrite(p []byte) int {
	u.mu.Lock()
	u.wire = append(u.wire, p...)
	u.mu.Unlock()
	return len(p)
}

// DMARead is the receive request line.
func (u *UART) DMARead(p []byte) int {
	u.mu.Lock()
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	u.mu.Unlock()
	return n
}
