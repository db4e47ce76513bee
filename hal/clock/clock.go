// Package clock names the clocks the drivers gate and provides the
// reference-counted gate shared by all instances of a peripheral class.
package clock

import (
	"sync"

	"devicehal-go/x/conv"
	"devicehal-go/x/logx"
)

// ID names a clock branch or source, e.g. "gpdma" or "uart0".
type ID string

// Clock sources and branches referenced by the drivers.
const (
	Core     ID = "core"
	IRC      ID = "irc"
	WdtOsc   ID = "wdtosc"
	GPDMA    ID = "gpdma"
	WWDT     ID = "wwdt"
	UARTPfx  ID = "uart"
	TimerPfx ID = "timer"
	SSPPfx   ID = "ssp"
)

// Indexed returns the branch clock of unit n of a family, e.g. uart2.
func Indexed(family ID, n int) ID {
	return family + ID(conv.Itoa(n))
}

// Controller gates branch clocks and reports frequencies.
type Controller interface {
	Enable(id ID)
	Disable(id ID)
	Enabled(id ID) bool
	Frequency(id ID) uint32
}

// Gate counts attachments to a shared peripheral. The on function runs on
// the 0 -> 1 transition and off on 1 -> 0; both run under the gate's lock.
type Gate struct {
	mu   sync.Mutex
	name string
	refs int
	on   func()
	off  func()
}

func NewGate(name string, on, off func()) *Gate {
	return &Gate{name: name, on: on, off: off}
}

// Attach takes one reference.
func (g *Gate) Attach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs++
	if g.refs == 1 {
		logx.Debug(logx.Clock, "gate on", "gate", g.name)
		g.on()
	}
}

// Detach drops one reference. Detaching an idle gate is ignored so the
// count never goes negative.
func (g *Gate) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs == 0 {
		logx.Warn(logx.Clock, "detach on idle gate", "gate", g.name)
		return
	}
	g.refs--
	if g.refs == 0 {
		logx.Debug(logx.Clock, "gate off", "gate", g.name)
		g.off()
	}
}

func (g *Gate) Refs() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs
}
