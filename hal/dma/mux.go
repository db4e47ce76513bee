package dma

import (
	"sync"

	"devicehal-go/errcode"
	"devicehal-go/hal/chip"
	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

// Setting is the multiplexer register update a channel needs: keep the bits
// in Mask, then OR in Value. A cleared field in Mask marks an input the
// channel occupies.
type Setting struct {
	Mask  uint32
	Value uint32
}

// NoSetting occupies no input and leaves the register untouched.
func NoSetting() Setting { return Setting{Mask: ^uint32(0)} }

// Apply returns reg updated with s.
func (s Setting) Apply(reg uint32) uint32 { return reg&s.Mask | s.Value }

// Merge combines two settings that occupy disjoint inputs.
func (s Setting) Merge(o Setting) Setting {
	return Setting{Mask: s.Mask & o.Mask, Value: s.Value&o.Mask | o.Value}
}

// Inputs lists the inputs s occupies for a register of the given field width.
func (s Setting) Inputs(width uint) []int {
	var out []int
	for i := uint(0); i*width < 32; i++ {
		if ^s.Mask&mathx.FieldMask[uint32](i, width) != 0 {
			out = append(out, int(i))
		}
	}
	return out
}

// Mux assigns request events to the shared multiplexer inputs. Each input
// routes a fixed menu of events; among the inputs that route an event the
// least loaded one wins, ties going to the lowest index.
type Mux struct {
	mu    sync.Mutex
	menus [][]chip.Event
	width uint
	loads []int
}

func NewMux(menus [][]chip.Event, width uint) *Mux {
	return &Mux{menus: menus, width: width, loads: make([]int, len(menus))}
}

// Allocate picks an input for ev, takes one load unit on it and returns the
// input with the register setting that selects ev on it. An event no input
// can route is a wiring fault and panics with errcode.InvalidWiring.
func (m *Mux) Allocate(ev chip.Event) (int, Setting) {
	if ev == chip.EventNone {
		errcode.Fault("dma.mux", "memory transfers take no mux input")
	}

	m.mu.Lock()
	best, pos := -1, 0
	for i, menu := range m.menus {
		p := position(menu, ev)
		if p < 0 {
			continue
		}
		if best < 0 || m.loads[i] < m.loads[best] {
			best, pos = i, p
		}
	}
	if best < 0 {
		m.mu.Unlock()
		errcode.Fault("dma.mux", "no input routes "+ev.String())
	}
	m.loads[best]++
	load := m.loads[best]
	m.mu.Unlock()

	s := Setting{
		Mask:  ^mathx.FieldMask[uint32](uint(best), m.width),
		Value: mathx.Field(uint32(pos), uint(best), m.width),
	}
	logx.Debug(logx.DMA, "mux allocate", "event", ev.String(), "input", best, "load", load)
	return best, s
}

// Free returns one load unit on every input s occupies.
func (m *Mux) Free(s Setting) {
	inputs := s.Inputs(m.width)
	if len(inputs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range inputs {
		if i >= len(m.loads) || m.loads[i] == 0 {
			errcode.Fault("dma.mux", "free of an input that is not loaded")
		}
		m.loads[i]--
	}
}

// Loads returns a copy of the per-input load counters.
func (m *Mux) Loads() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.loads...)
}

func position(menu []chip.Event, ev chip.Event) int {
	for i, e := range menu {
		if e == ev {
			return i
		}
	}
	return -1
}
