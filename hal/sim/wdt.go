package sim

import "sync"

// Watchdog counts down from the timeout once started. A warning is latched
// when a quarter of the period is left; reaching zero resets the chip,
// which the model records and reloads from. Once started it cannot stop.
type Watchdog struct {
	mu      sync.Mutex
	source  uint8
	timeout uint32
	count   uint32
	warnInt bool
	warned  bool
	running bool
	resets  int
	raise   func()
}

func NewWatchdog() *Watchdog { return &Watchdog{timeout: 0xFF} }

func (w *Watchdog) SelectClock(source uint8) {
	w.mu.Lock()
	w.source = source
	w.mu.Unlock()
}

func (w *Watchdog) Source() uint8 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

func (w *Watchdog) SetTimeout(ticks uint32) {
	w.mu.Lock()
	w.timeout = ticks
	w.mu.Unlock()
}

func (w *Watchdog) Timeout() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeout
}

func (w *Watchdog) SetWarningInterrupt(on bool) {
	w.mu.Lock()
	w.warnInt = on
	w.mu.Unlock()
}

func (w *Watchdog) Start() {
	w.mu.Lock()
	w.running = true
	w.count = w.timeout
	w.mu.Unlock()
}

func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watchdog) Feed() {
	w.mu.Lock()
	w.count = w.timeout
	w.mu.Unlock()
}

func (w *Watchdog) Warned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.warned
}

func (w *Watchdog) ClearWarning() {
	w.mu.Lock()
	w.warned = false
	w.mu.Unlock()
}

// Resets returns how many times the counter expired.
func (w *Watchdog) Resets() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resets
}

// Advance counts down the given number of watchdog ticks.
func (w *Watchdog) Advance(ticks uint32) {
	for ; ticks > 0; ticks-- {
		w.mu.Lock()
		if !w.running {
			w.mu.Unlock()
			return
		}
		if w.count > 0 {
			w.count--
		}
		assert := false
		if w.count == w.timeout/4 && !w.warned {
			w.warned = true
			assert = w.warnInt
		}
		if w.count == 0 {
			w.resets++
			w.count = w.timeout
		}
		w.mu.Unlock()
		if assert {
			fire(w.raise)
		}
	}
}
