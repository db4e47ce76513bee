package sim

import (
	"context"
	"sync"

	"devicehal-go/hal/chip"
	"devicehal-go/hal/periph"
	"devicehal-go/x/mathx"
)

// Port is the peripheral side of a DMA request line.
type Port interface {
	// DMAWrite accepts bytes from a memory-to-peripheral channel and
	// returns how many it took.
	DMAWrite(p []byte) int
	// DMARead fills p for a peripheral-to-memory channel and returns how
	// many bytes it supplied.
	DMARead(p []byte) int
}

type dmaChannel struct {
	on   bool
	req  periph.DMARequest
	done int
	fail bool
}

// DMA is the general-purpose DMA controller. Transfers advance when Step is
// called, or continuously once Run is started.
type DMA struct {
	mu      sync.Mutex
	v       chip.Variant
	enabled bool
	mux     uint32
	term    uint32
	errs    uint32
	ch      []dmaChannel
	ports   map[chip.Event]Port
	raise   func()
	kick    chan struct{}
}

func NewDMA(v chip.Variant) *DMA {
	return &DMA{
		v:     v,
		ch:    make([]dmaChannel, v.DMAChannels),
		ports: map[chip.Event]Port{},
		kick:  make(chan struct{}, 1),
	}
}

// Connect attaches p to the request line ev.
func (d *DMA) Connect(ev chip.Event, p Port) {
	d.mu.Lock()
	d.ports[ev] = p
	d.mu.Unlock()
}

func (d *DMA) SetEnabled(on bool) {
	d.mu.Lock()
	d.enabled = on
	d.mu.Unlock()
}

func (d *DMA) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *DMA) Status() (terminal, errors uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.term, d.errs
}

func (d *DMA) Clear(terminal, errors uint32) {
	d.mu.Lock()
	d.term &^= terminal
	d.errs &^= errors
	d.mu.Unlock()
}

func (d *DMA) Mux() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mux
}

func (d *DMA) SetMux(v uint32) {
	d.mu.Lock()
	d.mux = v
	d.mu.Unlock()
}

func (d *DMA) Start(ch int, req periph.DMARequest) {
	d.mu.Lock()
	d.ch[ch] = dmaChannel{on: true, req: req, fail: d.ch[ch].fail}
	d.mu.Unlock()
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

func (d *DMA) ChannelEnabled(ch int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ch[ch].on
}

func (d *DMA) Halt(ch int) {
	d.mu.Lock()
	d.ch[ch].on = false
	d.mu.Unlock()
}

func (d *DMA) Remaining(ch int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &d.ch[ch]
	if !c.on {
		return 0
	}
	return c.req.Size - c.done
}

// FailNext makes the next Step abort channel ch with the error flag.
func (d *DMA) FailNext(ch int) {
	d.mu.Lock()
	d.ch[ch].fail = true
	d.mu.Unlock()
}

// Spurious latches the terminal flag of ch without touching the channel and
// asserts the vector.
func (d *DMA) Spurious(ch int) {
	d.mu.Lock()
	d.term |= 1 << ch
	d.mu.Unlock()
	fire(d.raise)
}

// Step makes one pass over the enabled channels, lowest first, moving as
// many bytes as each request line accepts. Finished channels are disabled
// and latch their terminal flag; the vector is asserted once after the pass.
// Step reports whether any channel progressed or finished.
func (d *DMA) Step() bool {
	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return false
	}
	progressed, assert := false, false
	for i := range d.ch {
		c := &d.ch[i]
		if !c.on {
			continue
		}
		if c.fail {
			c.fail, c.on = false, false
			d.errs |= 1 << i
			progressed, assert = true, true
			continue
		}
		n, ok := d.move(c)
		if !ok {
			c.on = false
			d.errs |= 1 << i
			progressed, assert = true, true
			continue
		}
		if n > 0 {
			c.done += n
			progressed = true
		}
		if c.done >= c.req.Size {
			c.on = false
			d.term |= 1 << i
			assert = true
		}
	}
	d.mu.Unlock()
	if assert {
		fire(d.raise)
	}
	return progressed
}

// move runs with d.mu held. It fails when a peripheral side has no port.
func (d *DMA) move(c *dmaChannel) (int, bool) {
	r := &c.req
	switch {
	case r.SrcPeriph == periph.Memory && r.DstPeriph == periph.Memory:
		if !r.SrcInc {
			for i := c.done; i < r.Size; i++ {
				r.Dst[i] = r.Src[0]
			}
			return r.Size - c.done, true
		}
		return copy(r.Dst[c.done:r.Size], r.Src[c.done:r.Size]), true
	case r.DstPeriph != periph.Memory:
		p := d.port(r.DstPeriph)
		if p == nil {
			return 0, false
		}
		return p.DMAWrite(r.Src[c.done:r.Size]), true
	default:
		p := d.port(r.SrcPeriph)
		if p == nil {
			return 0, false
		}
		return p.DMARead(r.Dst[c.done:r.Size]), true
	}
}

// port resolves the request line a mux input currently selects.
func (d *DMA) port(input int) Port {
	if !mathx.InRange(input, len(d.v.MuxMenus)) {
		return nil
	}
	pos := int(mathx.FieldGet(d.mux, uint(input), d.v.MuxFieldWidth))
	menu := d.v.MuxMenus[input]
	if pos >= len(menu) || menu[pos] == chip.EventNone {
		return nil
	}
	return d.ports[menu[pos]]
}

// Drain steps until no channel progresses.
func (d *DMA) Drain() {
	for d.Step() {
	}
}

// Run drains the controller every time a transfer starts, until ctx ends.
func (d *DMA) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.kick:
			d.Drain()
		}
	}
}
