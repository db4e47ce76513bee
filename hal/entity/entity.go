// Package entity is the object model shared by every peripheral driver.
//
// A Class describes one driver type: how to allocate an instance and how to
// initialise it from a typed configuration. Operations specific to a family
// of drivers (DMA, timer, UART) are expressed as Go interfaces that the
// concrete instance types implement, so an instance that lacks an operation
// does not compile rather than failing at first use.
//
// Abstract classes have no allocator. They are never constructed directly;
// a concrete type embeds the abstract state, calls the abstract Init first
// and the abstract Deinit last.
package entity

import (
	"devicehal-go/errcode"
	"devicehal-go/x/logx"
)

// Entity is implemented by every constructed driver instance.
type Entity interface {
	Deinit()
}

// Descriptor is the type-erased view of a Class used for introspection.
type Descriptor interface {
	ClassName() string
	Abstract() bool
}

// Class describes one driver type. T is the instance type, C its
// configuration. A nil New marks the class abstract.
type Class[T Entity, C any] struct {
	Name string
	New  func() T
	Init func(obj T, cfg C) error
}

func (c *Class[T, C]) ClassName() string { return c.Name }
func (c *Class[T, C]) Abstract() bool    { return c.New == nil }

// Header is embedded first in every instance and records the class the
// instance was constructed as.
type Header struct {
	class Descriptor
}

// Class returns the descriptor of the concrete class, or nil for an
// instance that was not built through Init.
func (h *Header) Class() Descriptor { return h.class }

func (h *Header) setClass(d Descriptor) { h.class = d }

type classSetter interface{ setClass(Descriptor) }

// Init allocates and initialises an instance of class c. On failure the
// partially built instance is dropped and the error is wrapped as
// errcode.InitFailed; class constructors must undo any slot claims they
// made before returning an error.
func Init[T Entity, C any](c *Class[T, C], cfg C) (T, error) {
	var zero T
	if c.Abstract() {
		return zero, &errcode.E{C: errcode.AbstractClass, Op: "init", Msg: c.Name}
	}
	obj := c.New()
	if s, ok := any(obj).(classSetter); ok {
		s.setClass(c)
	}
	if err := c.Init(obj, cfg); err != nil {
		logx.Debug(logx.Entity, "init failed", "class", c.Name, "err", err)
		return zero, &errcode.E{C: errcode.InitFailed, Op: "init", Msg: c.Name, Err: err}
	}
	logx.Debug(logx.Entity, "init", "class", c.Name)
	return obj, nil
}

// Deinit destroys obj. Exactly one call per constructed instance belongs to
// whoever constructed it; a second call is undefined.
func Deinit(obj Entity) {
	if obj == nil {
		return
	}
	obj.Deinit()
}

// Noop is the destructor of abstract classes whose state needs no teardown.
func Noop() {}
