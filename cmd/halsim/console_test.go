package main

import (
	"bytes"
	"strings"
	"testing"

	"devicehal-go/hal/chip"
)

func script(t *testing.T, v chip.Variant, lines ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	code := run(v, strings.NewReader(strings.Join(lines, "\n")), &out, false)
	return out.String(), code
}

func TestUARTLoop(t *testing.T) {
	out, code := script(t, chip.LPC43xx,
		"# echo through the simulated line",
		"uart open 0 115200",
		`uart write 0 "hello there"`,
		"uart wire 0",
		"uart inject 0 ping",
		"uart read 0",
		"uart close 0",
	)
	if code != 0 {
		t.Fatalf("exit %d:\n%s", code, out)
	}
	for _, want := range []string{`"hello there"`, `"ping"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in:\n%s", want, out)
		}
	}
}

func TestBusyAndUsageErrors(t *testing.T) {
	out, code := script(t, chip.LPC43xx,
		"uart open 1 9600",
		"uart open 1 9600",
		"timer open",
		"frobnicate",
	)
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"line 2:", "busy", "line 3: usage: timer", `line 4: unknown command "frobnicate"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDMAAndSPI(t *testing.T) {
	out, code := script(t, chip.LPC43xx,
		"dma open a 0 m2m",
		"dma copy a 'dma copy'",
		"dma open b 1 m2p ssp1_tx",
		"mux",
		"dma close b",
		"spi open 0 1000000 2 3",
		"spi xfer 0 deadbeef",
		"slots",
		"spi close 0",
		"dma close a",
	)
	if code != 0 {
		t.Fatalf("exit %d:\n%s", code, out)
	}
	for _, want := range []string{`"dma copy"`, "loads [0 0 0 1 0 0 0 0 0 0 0 0 0 0 0 0]", "deadbeef", "ssp    #."} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUnroutableEventIsReported(t *testing.T) {
	out, code := script(t, chip.LPC17xx, "dma open x 0 m2p spifi")
	if code != 1 || !strings.Contains(out, "invalid_wiring") {
		t.Fatalf("exit %d:\n%s", code, out)
	}
}

func TestTimerAndWatchdog(t *testing.T) {
	out, code := script(t, chip.LPC43xx,
		"timer open 0 1000000 10",
		"timer start 0",
		"timer advance 0 4080",
		"wdt open irc 100",
		"wdt advance 225000",
		"wdt advance 75000",
		"classes",
		"quit",
		"never reached",
	)
	if code != 0 {
		t.Fatalf("exit %d:\n%s", code, out)
	}
	if n := strings.Count(out, "timer0 overflow"); n != 2 {
		t.Fatalf("%d overflows in:\n%s", n, out)
	}
	for _, want := range []string{"wdt warning", "resets=1", "dma.ChannelBase    abstract", "uart.Serial        concrete"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
