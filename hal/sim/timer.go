package sim

import (
	"sync"

	"devicehal-go/hal/periph"
)

// Timer counts prescaled ticks up to the match value, then latches the
// match flag and restarts from zero.
type Timer struct {
	mu       sync.Mutex
	prescale uint32
	match    uint32
	pc       uint32
	tc       uint32
	running  bool
	matchInt bool
	flags    uint32
	raise    func()
}

func NewTimer() *Timer { return &Timer{prescale: 1} }

func (t *Timer) SetPrescaler(div uint32) {
	t.mu.Lock()
	t.prescale = max(div, 1)
	t.pc = 0
	t.mu.Unlock()
}

func (t *Timer) Prescaler() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prescale
}

func (t *Timer) SetMatch(value uint32) {
	t.mu.Lock()
	t.match = value
	t.mu.Unlock()
}

func (t *Timer) SetMatchInterrupt(on bool) {
	t.mu.Lock()
	t.matchInt = on
	t.mu.Unlock()
}

func (t *Timer) SetRunning(on bool) {
	t.mu.Lock()
	t.running = on
	t.mu.Unlock()
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Flags() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

func (t *Timer) ClearFlags(mask uint32) {
	t.mu.Lock()
	t.flags &^= mask
	t.mu.Unlock()
}

// Advance runs the timer for the given number of core clock cycles and
// returns how many matches occurred. Each match asserts the vector when the
// match interrupt is enabled.
func (t *Timer) Advance(cycles uint32) int {
	matches := 0
	for cycles > 0 {
		t.mu.Lock()
		if !t.running || t.match == 0 {
			t.mu.Unlock()
			break
		}
		if t.tc >= t.match {
			t.tc, t.pc = 0, 0
		}
		// cycles until the next match
		need := uint64(t.match-t.tc)*uint64(t.prescale) - uint64(t.pc)
		if uint64(cycles) < need {
			total := t.pc + cycles
			t.tc += total / t.prescale
			t.pc = total % t.prescale
			t.mu.Unlock()
			break
		}
		cycles -= uint32(need)
		t.tc, t.pc = 0, 0
		t.flags |= periph.TimerMatch0
		assert := t.matchInt
		t.mu.Unlock()
		matches++
		if assert {
			fire(t.raise)
		}
	}
	return matches
}
