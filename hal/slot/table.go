// Package slot binds physical resource indices to at most one live driver
// instance.
//
// A Table is a fixed row of atomic cells, one per resource unit. A cell is
// either empty or holds the Handle of the instance that claimed it. Claims
// are a single compare-and-swap, so two claimers can never both observe an
// empty cell. Cells hold handles rather than pointers: the table never owns
// an instance and never extends its lifetime.
package slot

import (
	"sync/atomic"

	"devicehal-go/errcode"
	"devicehal-go/x/logx"
	"devicehal-go/x/mathx"
)

type Table struct {
	name  string
	cells []atomic.Uint32
}

// NewTable returns a table of n empty slots.
func NewTable(name string, n int) *Table {
	if n <= 0 {
		panic("slot: table " + name + " needs at least one slot")
	}
	return &Table{name: name, cells: make([]atomic.Uint32, n)}
}

func (t *Table) Name() string { return t.name }
func (t *Table) Len() int     { return len(t.cells) }

// Claim binds h to index iff the slot is empty. A claimed slot yields
// errcode.Busy and leaves the table unchanged.
func (t *Table) Claim(index int, h Handle) error {
	if !mathx.InRange(index, len(t.cells)) {
		return &errcode.E{C: errcode.OutOfRange, Op: "claim", Msg: t.name}
	}
	if h == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "claim", Msg: t.name}
	}
	if !t.cells[index].CompareAndSwap(0, uint32(h)) {
		return errcode.Busy
	}
	logx.Debug(logx.Slot, "claim", "table", t.name, "index", index)
	return nil
}

// Release empties index unconditionally. Releasing an empty or out-of-range
// slot is a no-op. It is safe from interrupt context.
func (t *Table) Release(index int) {
	if !mathx.InRange(index, len(t.cells)) {
		return
	}
	t.cells[index].Store(0)
}

// ReleaseOwned empties index only while it still holds h, so an owner's
// destructor cannot evict a newer owner that claimed the slot after an
// interrupt-side release. It reports whether the slot was emptied.
func (t *Table) ReleaseOwned(index int, h Handle) bool {
	if !mathx.InRange(index, len(t.cells)) || h == 0 {
		return false
	}
	return t.cells[index].CompareAndSwap(uint32(h), 0)
}

// Load returns the handle bound to index, or zero.
func (t *Table) Load(index int) Handle {
	if !mathx.InRange(index, len(t.cells)) {
		return 0
	}
	return Handle(t.cells[index].Load())
}

// Occupied returns one flag per slot.
func (t *Table) Occupied() []bool {
	out := make([]bool, len(t.cells))
	for i := range t.cells {
		out[i] = t.cells[i].Load() != 0
	}
	return out
}
