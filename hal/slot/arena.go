package slot

import (
	"sync"
	"sync/atomic"

	"devicehal-go/errcode"
)

// Handle names one live instance in an Arena. The low 16 bits hold the entry
// index plus one and the high 16 bits the entry generation, so a handle kept
// past the instance's removal resolves to nothing instead of to whatever
// instance reused the entry. The zero handle is invalid.
type Handle uint32

const (
	indexBits = 16
	indexMask = 1<<indexBits - 1
)

func makeHandle(idx int, gen uint32) Handle {
	return Handle(gen<<indexBits | uint32(idx+1))
}

func (h Handle) index() int  { return int(h&indexMask) - 1 }
func (h Handle) gen() uint32 { return uint32(h) >> indexBits }

// Arena owns the mapping from handles to live instances. Put and Remove run
// on main-line code and serialise on a mutex; Get is lock-free and may be
// called from interrupt context.
type Arena[T any] struct {
	mu      sync.Mutex
	entries []arenaEntry[T]
	live    int
}

type arenaEntry[T any] struct {
	gen atomic.Uint32
	obj atomic.Pointer[T]
}

// NewArena returns an arena holding at most capacity instances.
func NewArena[T any](capacity int) *Arena[T] {
	if capacity <= 0 || capacity > indexMask {
		panic("slot: arena capacity out of range")
	}
	a := &Arena[T]{entries: make([]arenaEntry[T], capacity)}
	for i := range a.entries {
		a.entries[i].gen.Store(1)
	}
	return a
}

// Put registers obj and returns its handle. It fails with errcode.Exhausted
// when every entry is in use.
func (a *Arena[T]) Put(obj *T) (Handle, error) {
	if obj == nil {
		return 0, errcode.Wrap(errcode.InvalidParams, "arena.put", nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.entries {
		e := &a.entries[i]
		if e.obj.Load() != nil {
			continue
		}
		e.obj.Store(obj)
		a.live++
		return makeHandle(i, e.gen.Load()), nil
	}
	return 0, errcode.Wrap(errcode.Exhausted, "arena.put", nil)
}

// Get resolves h. It returns nil for the zero handle and for handles whose
// instance has been removed.
func (a *Arena[T]) Get(h Handle) *T {
	idx := h.index()
	if idx < 0 || idx >= len(a.entries) {
		return nil
	}
	e := &a.entries[idx]
	g := e.gen.Load()
	if g != h.gen() {
		return nil
	}
	obj := e.obj.Load()
	// A Remove+Put racing the two loads above bumps the generation.
	if e.gen.Load() != g {
		return nil
	}
	return obj
}

// Remove drops the instance named by h. Stale handles are ignored.
func (a *Arena[T]) Remove(h Handle) {
	idx := h.index()
	if idx < 0 || idx >= len(a.entries) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e := &a.entries[idx]
	if e.gen.Load() != h.gen() || e.obj.Load() == nil {
		return
	}
	e.obj.Store(nil)
	next := e.gen.Load() + 1
	if next > indexMask {
		next = 1
	}
	e.gen.Store(next)
	a.live--
}

// Len returns the number of live instances.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
