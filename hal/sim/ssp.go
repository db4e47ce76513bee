package sim

import "sync"

const sspFIFO = 8

// SSP is a synchronous serial port. Every byte the transmit request line
// shifts out is exchanged with the attached device, and the reply lands in
// the receive FIFO. Replies that find the FIFO full are lost and latch the
// overrun flag.
type SSP struct {
	mu      sync.Mutex
	divider uint32
	mode    uint8
	dmaTx   bool
	dmaRx   bool
	ovrInt  bool
	overrun bool
	rx      []byte
	device  func(out byte) byte
	raise   func()
}

// NewSSP returns a port in loopback.
func NewSSP() *SSP { return &SSP{} }

// Attach connects the device on the far side of the bus; nil restores
// loopback.
func (s *SSP) Attach(device func(out byte) byte) {
	s.mu.Lock()
	s.device = device
	s.mu.Unlock()
}

func (s *SSP) SetClockDivider(div uint32) {
	s.mu.Lock()
	s.divider = div
	s.mu.Unlock()
}

func (s *SSP) ClockDivider() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.divider
}

func (s *SSP) SetMode(mode uint8) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *SSP) SetDMA(tx, rx bool) {
	s.mu.Lock()
	s.dmaTx, s.dmaRx = tx, rx
	s.mu.Unlock()
}

func (s *SSP) SetOverrunInterrupt(on bool) {
	s.mu.Lock()
	s.ovrInt = on
	s.mu.Unlock()
}

func (s *SSP) Overrun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrun
}

func (s *SSP) ClearOverrun() {
	s.mu.Lock()
	s.overrun = false
	s.mu.Unlock()
}

// DMAWrite shifts bytes out. It stops when the receive FIFO is full and
// receive DMA is draining it, so the two channels stay in lockstep.
func (s *SSP) DMAWrite(p []byte) int {
	s.mu.Lock()
	if !s.dmaTx {
		s.mu.Unlock()
		return 0
	}
	n := 0
	assert := false
	for _, b := range p {
		if len(s.rx) >= sspFIFO && s.dmaRx {
			break
		}
		in := b
		if s.device != nil {
			in = s.device(b)
		}
		n++
		if len(s.rx) >= sspFIFO {
			if !s.overrun {
				s.overrun = true
				assert = s.ovrInt
			}
			continue
		}
		s.rx = append(s.rx, in)
	}
	s.mu.Unlock()
	if assert {
		fire(s.raise)
	}
	return n
}

// DMARead drains the receive FIFO.
func (s *SSP) DMARead(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dmaRx {
		return 0
	}
	n := copy(p, s.rx)
	s.rx = s.rx[n:]
	return n
}
