package wdt_test

import (
	"errors"
	"testing"
	"time"

	"devicehal-go/errcode"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/sim"
	"devicehal-go/hal/wdt"
)

func TestWarningAndReset(t *testing.T) {
	ctx, c := sim.NewContext(chip.LPC43xx)
	w, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer entity.Deinit(w)

	// 12 MHz IRC / 4 over 100 ms
	if w.Ticks() != 300_000 || c.WDT.Timeout() != 300_000 || !c.WDT.Running() {
		t.Fatalf("ticks %d", w.Ticks())
	}
	warned := 0
	w.SetCallback(func() { warned++ })

	c.WDT.Advance(200_000)
	w.Reload()
	c.WDT.Advance(200_000)
	if warned != 0 || c.WDT.Resets() != 0 {
		t.Fatalf("fed watchdog warned %d reset %d", warned, c.WDT.Resets())
	}
	c.WDT.Advance(25_000)
	if warned != 1 || c.WDT.Warned() {
		t.Fatalf("warned %d, flag left %v", warned, c.WDT.Warned())
	}
	c.WDT.Advance(75_000)
	if c.WDT.Resets() != 1 {
		t.Fatalf("resets %d", c.WDT.Resets())
	}
}

func TestSingleInstance(t *testing.T) {
	ctx, c := sim.NewContext(chip.LPC17xx)
	w, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Source: wdt.SourceWdtOsc, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if c.WDT.Source() != uint8(wdt.SourceWdtOsc) {
		t.Fatal("clock source not selected")
	}
	if _, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Timeout: time.Second}); !errors.Is(err, errcode.Busy) {
		t.Fatalf("second watchdog: %v", err)
	}
	entity.Deinit(w)
	if !c.WDT.Running() {
		t.Fatal("deinit must not stop the counter")
	}
	if ctx.WDT.Load(0) != 0 {
		t.Fatal("slot not released")
	}
}

func TestInvalidConfigRollsBack(t *testing.T) {
	ctx, c := sim.NewContext(chip.LPC43xx)
	if _, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Source: 7, Timeout: time.Second}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("source: %v", err)
	}
	if _, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Timeout: time.Microsecond}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("timeout: %v", err)
	}
	if ctx.WDT.Load(0) != 0 || c.WDT.Running() {
		t.Fatal("failed init must leave the watchdog free and stopped")
	}
	if _, err := entity.Init(wdt.BaseClass, wdt.BaseConfig{Context: ctx}); !errors.Is(err, errcode.AbstractClass) {
		t.Fatalf("base: %v", err)
	}
}

func TestTimeoutBeyondCounterRejected(t *testing.T) {
	ctx, c := sim.NewContext(chip.LPC43xx)
	for _, d := range []time.Duration{
		6 * time.Second,
		time.Duration(6149014691237), // product wraps 64 bits to ~100ms
		100 * time.Hour,
		-time.Second,
	} {
		if w, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Timeout: d}); !errors.Is(err, errcode.InvalidParams) {
			if err == nil {
				t.Fatalf("timeout %v accepted as %d ticks", d, w.Ticks())
			}
			t.Fatalf("timeout %v: %v", d, err)
		}
	}
	if ctx.WDT.Load(0) != 0 || c.WDT.Running() {
		t.Fatal("rejected timeouts must leave the watchdog free and stopped")
	}
	// 3 MHz counter: 5s is 15M ticks, below the 24-bit limit
	w, err := entity.Init(wdt.Class, wdt.Config{Context: ctx, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer entity.Deinit(w)
	if w.Ticks() != 15_000_000 {
		t.Fatalf("ticks %d", w.Ticks())
	}
}
