package chip

import (
	"testing"

	"devicehal-go/errcode"
)

func TestVariantsValidate(t *testing.T) {
	for _, v := range []Variant{LPC43xx, LPC17xx} {
		v.Validate()
	}
	if Selected.Name == "" {
		t.Fatal("no selected variant")
	}
}

func TestValidateRejectsWideMenu(t *testing.T) {
	v := LPC17xx
	v.MuxMenus = [][]Event{{UART0TX, Mat0_0, SSP0TX}}
	defer func() {
		e, ok := recover().(*errcode.E)
		if !ok || e.C != errcode.InvalidWiring {
			t.Fatalf("want invalid_wiring panic, got %#v", e)
		}
	}()
	v.Validate()
}

func TestValidateRejectsSharedVector(t *testing.T) {
	v := LPC43xx
	v.IRQ.WDT = v.IRQ.DMA
	defer func() {
		if recover() == nil {
			t.Fatal("shared vector accepted")
		}
	}()
	v.Validate()
}

func TestEventNames(t *testing.T) {
	for e := Event(1); e < eventCount; e++ {
		got, ok := ParseEvent(e.String())
		if !ok || got != e {
			t.Fatalf("round trip of %v failed", e)
		}
	}
	if _, ok := ParseEvent("none"); ok {
		t.Fatal("none must not parse")
	}
	tx, rx := UARTEvents(2)
	if tx != UART2TX || rx != UART2RX {
		t.Fatalf("UARTEvents(2) = %v,%v", tx, rx)
	}
	tx, rx = SSPEvents(1)
	if tx != SSP1TX || rx != SSP1RX {
		t.Fatalf("SSPEvents(1) = %v,%v", tx, rx)
	}
}
