package slot

// Bank pairs a Table with the Arena its handles resolve in. It is the shape
// every peripheral family uses: instances register once, then claim and
// release resource slots by index.
type Bank[T any] struct {
	*Table
	arena *Arena[T]
}

// NewBank returns a bank of n slots whose arena holds up to capacity
// instances. Capacity may exceed n when instances outlive their slot binding.
func NewBank[T any](name string, n, capacity int) *Bank[T] {
	return &Bank[T]{Table: NewTable(name, n), arena: NewArena[T](capacity)}
}

func (b *Bank[T]) Arena() *Arena[T] { return b.arena }

// Register makes obj addressable by handle.
func (b *Bank[T]) Register(obj *T) (Handle, error) { return b.arena.Put(obj) }

// Unregister drops obj's handle; lookups through it return nil afterwards.
func (b *Bank[T]) Unregister(h Handle) { b.arena.Remove(h) }

// Bind registers obj and claims index for it in one step, rolling the
// registration back when the claim fails.
func (b *Bank[T]) Bind(index int, obj *T) (Handle, error) {
	h, err := b.arena.Put(obj)
	if err != nil {
		return 0, err
	}
	if err := b.Claim(index, h); err != nil {
		b.arena.Remove(h)
		return 0, err
	}
	return h, nil
}

// Unbind releases index if h still owns it and unregisters h. It tolerates
// the slot having been released already.
func (b *Bank[T]) Unbind(index int, h Handle) {
	b.ReleaseOwned(index, h)
	b.arena.Remove(h)
}

// Lookup resolves the instance bound to index. It is lock-free and returns
// nil for empty slots and for instances already unregistered.
func (b *Bank[T]) Lookup(index int) *T {
	h := b.Load(index)
	if h == 0 {
		return nil
	}
	return b.arena.Get(h)
}
