// Package dma drives the general-purpose DMA controller: the shared
// handler that owns the channel slot table and the request multiplexer, the
// abstract channel base, and the concrete GpDma channel.
package dma

import "devicehal-go/hal/entity"

// Kind is the direction of a channel.
type Kind uint8

const (
	MemToMem Kind = iota
	MemToPeriph
	PeriphToMem
)

func (k Kind) String() string {
	switch k {
	case MemToMem:
		return "m2m"
	case MemToPeriph:
		return "m2p"
	case PeriphToMem:
		return "p2m"
	}
	return "kind?"
}

// ParseKind maps "m2m", "m2p" and "p2m" to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k := MemToMem; k <= PeriphToMem; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Burst is the number of transfers in one burst request.
type Burst uint8

const (
	Burst1 Burst = iota
	Burst4
	Burst8
	Burst16
	Burst32
	Burst64
	Burst128
	Burst256
)

// Width is the size of one transfer.
type Width uint8

const (
	WidthByte Width = iota
	WidthHalfword
	WidthWord
)

// Dma is the capability every DMA channel class provides.
type Dma interface {
	entity.Entity
	// SetCallback registers fn to run in interrupt context when a transfer
	// finishes or fails.
	SetCallback(fn func())
	// Count returns the number of transfers still pending.
	Count() int
	Reconfigure(cfg RuntimeConfig) error
	Start(dst, src []byte) error
	// Status returns nil after a successful transfer, errcode.Busy while
	// one is running and errcode.TransferError after a failed one.
	Status() error
	Stop()
}

// RuntimeConfig holds the settings that may change between transfers.
type RuntimeConfig struct {
	SrcIncrement bool
	DstIncrement bool
}

// needsMux reports whether k takes a multiplexer input.
func (k Kind) needsMux() bool { return k != MemToMem }
