package sim

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"devicehal-go/hal/chip"
	"devicehal-go/hal/clock"
)

// SysCon gates branch clocks and reports their frequencies. Peripheral
// branches run at the core clock.
type SysCon struct {
	mu      sync.Mutex
	v       chip.Variant
	enabled map[clock.ID]bool
}

func NewSysCon(v chip.Variant) *SysCon {
	return &SysCon{v: v, enabled: map[clock.ID]bool{clock.Core: true, clock.IRC: true}}
}

func (s *SysCon) Enable(id clock.ID) {
	s.mu.Lock()
	s.enabled[id] = true
	s.mu.Unlock()
}

func (s *SysCon) Disable(id clock.ID) {
	s.mu.Lock()
	delete(s.enabled, id)
	s.mu.Unlock()
}

func (s *SysCon) Enabled(id clock.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[id]
}

func (s *SysCon) Frequency(id clock.ID) uint32 {
	switch id {
	case clock.IRC:
		return s.v.IRCHz
	case clock.WdtOsc:
		return s.v.WdtOscHz
	case clock.WWDT:
		return s.v.IRCHz
	}
	for _, p := range []clock.ID{clock.Core, clock.GPDMA, clock.UARTPfx, clock.TimerPfx, clock.SSPPfx} {
		if strings.HasPrefix(string(id), string(p)) {
			return s.v.CoreClockHz
		}
	}
	return 0
}

// Gated lists the clocks currently enabled, sorted.
func (s *SysCon) Gated() []clock.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]clock.ID, 0, len(s.enabled))
	for id := range s.enabled {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
