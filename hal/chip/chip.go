// Package chip holds the per-variant topology constants: how many units of
// each peripheral exist, which vector serves them, and which request lines
// each DMA multiplexer input can carry. Everything above this package is
// parameterised by a Variant; nothing hardcodes one chip.
package chip

import (
	"devicehal-go/x/conv"

	"devicehal-go/errcode"
)

// IRQMap assigns vector numbers to peripheral units.
type IRQMap struct {
	Count int // vector table length
	UART  []int
	Timer []int
	SSP   []int
	DMA   int
	WDT   int
}

type Variant struct {
	Name string

	CoreClockHz uint32
	IRCHz       uint32
	WdtOscHz    uint32

	UARTs       int
	Timers      int
	SSPs        int
	DMAChannels int

	// MuxMenus[i] lists the events input i can route; EventNone marks a
	// hole. The position of an event in its menu is the value written to
	// the input's field of the mux register.
	MuxMenus      [][]Event
	MuxFieldWidth uint

	IRQ IRQMap
}

// Validate panics with errcode.InvalidWiring when the tables are
// inconsistent with the declared counts.
func (v Variant) Validate() Variant {
	fault := func(msg string) { errcode.Fault("chip."+v.Name, msg) }
	if v.MuxFieldWidth == 0 || uint(len(v.MuxMenus))*v.MuxFieldWidth > 32 {
		fault("mux register does not fit 32 bits")
	}
	for i, menu := range v.MuxMenus {
		if len(menu) > 1<<v.MuxFieldWidth {
			fault("mux input " + conv.Itoa(i) + " menu wider than its field")
		}
	}
	if len(v.IRQ.UART) != v.UARTs || len(v.IRQ.Timer) != v.Timers || len(v.IRQ.SSP) != v.SSPs {
		fault("vector map does not match unit counts")
	}
	if v.DMAChannels <= 0 || v.DMAChannels > 32 {
		fault("dma channel count outside 1..32")
	}
	all := append(append(append([]int{v.IRQ.DMA, v.IRQ.WDT}, v.IRQ.UART...), v.IRQ.Timer...), v.IRQ.SSP...)
	seen := make(map[int]bool, len(all))
	for _, n := range all {
		if n < 0 || n >= v.IRQ.Count || seen[n] {
			fault("vector " + conv.Itoa(n) + " out of range or shared")
		}
		seen[n] = true
	}
	return v
}
