package spi_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/dma"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/sim"
	"devicehal-go/hal/spi"
)

func setup(t *testing.T, v chip.Variant) (*hal.Context, *sim.Chip) {
	t.Helper()
	ctx, c := sim.NewContext(v)
	run, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.DMA.Run(run)
	return ctx, c
}

func openBus(t *testing.T, ctx *hal.Context, ch int) *spi.SPI {
	t.Helper()
	s, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: ch, Rate: 1_000_000, TxDMA: 0, RxDMA: 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { entity.Deinit(s) })
	return s
}

func TestTxLoopback(t *testing.T) {
	ctx, _ := setup(t, chip.LPC43xx)
	s := openBus(t, ctx, 1)

	w := []byte("a longer message than one fifo")
	r := make([]byte, len(w))
	if err := s.Tx(w, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, w) {
		t.Fatalf("r %q", r)
	}
	if s.Overruns() != 0 {
		t.Fatalf("overruns %d", s.Overruns())
	}
}

func TestTransferThroughDevice(t *testing.T) {
	ctx, c := setup(t, chip.LPC17xx)
	s := openBus(t, ctx, 0)
	c.SSP[0].Attach(func(out byte) byte { return ^out })

	got, err := s.Transfer(0x0F)
	if err != nil || got != 0xF0 {
		t.Fatalf("transfer %#x %v", got, err)
	}
}

func TestShortBuffersArePadded(t *testing.T) {
	ctx, c := setup(t, chip.LPC43xx)
	s := openBus(t, ctx, 0)

	var seen []byte
	next := byte(1)
	c.SSP[0].Attach(func(out byte) byte {
		seen = append(seen, out)
		next++
		return next - 1
	})

	r := make([]byte, 4)
	if err := s.Tx([]byte{0xAA}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(seen, []byte{0xAA, 0, 0, 0}) || !bytes.Equal(r, []byte{1, 2, 3, 4}) {
		t.Fatalf("seen %x r %x", seen, r)
	}
	if err := s.Tx([]byte{1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Tx(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestTimeoutStopsChannels(t *testing.T) {
	ctx, _ := sim.NewContext(chip.LPC43xx) // no DMA engine running
	s, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: 0, Rate: 1_000_000, TxDMA: 2, RxDMA: 3, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer entity.Deinit(s)

	if err := s.Tx([]byte{1}, nil); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("err %v", err)
	}
	h := dma.For(ctx)
	if h.Descriptor(2) != nil || h.Descriptor(3) != nil {
		t.Fatal("timed out transfer must release its channels")
	}
}

func TestInitFailureReleasesEverything(t *testing.T) {
	ctx, c := setup(t, chip.LPC43xx)
	h := dma.For(ctx)

	_, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: 1, Rate: 1_000_000, TxDMA: 9, RxDMA: 1})
	if !errors.Is(err, errcode.OutOfRange) {
		t.Fatalf("err %v", err)
	}
	if ctx.SSP.Load(1) != 0 || h.Attached() != 0 || c.DMA.Enabled() {
		t.Fatal("failed init left resources held")
	}
	for i, l := range h.Mux().Loads() {
		if l != 0 {
			t.Fatalf("input %d load %d", i, l)
		}
	}

	if _, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: 1, Rate: 0}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("rate 0: %v", err)
	}
	if _, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: 2, Rate: 1}); !errors.Is(err, errcode.OutOfRange) {
		t.Fatalf("channel 2: %v", err)
	}
}

func TestBusIsExclusive(t *testing.T) {
	ctx, _ := setup(t, chip.LPC43xx)
	openBus(t, ctx, 0)
	if _, err := entity.Init(spi.Class, spi.Config{Context: ctx, Channel: 0, Rate: 1_000_000, TxDMA: 4, RxDMA: 5}); !errors.Is(err, errcode.Busy) {
		t.Fatalf("err %v", err)
	}
	if dma.For(ctx).Attached() != 2 {
		t.Fatalf("attached %d, want the first bus's two channels", dma.For(ctx).Attached())
	}
}
