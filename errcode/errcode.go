package errcode

import "errors"

// Code is a stable, short error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"           // resource slot already claimed
	Unsupported   Code = "unsupported"    // capability not provided by this class
	InvalidParams Code = "invalid_params" // configuration value rejected
	OutOfRange    Code = "out_of_range"   // index outside the chip topology
	InvalidWiring Code = "invalid_wiring" // static configuration fault (no mux input, bad table)
	InitFailed    Code = "init_failed"    // class constructor returned an error
	AbstractClass Code = "abstract_class" // attempt to construct an abstract class
	TransferError Code = "transfer_error" // DMA error latched by hardware
	Timeout       Code = "timeout"        // transfer did not finish in time
	Exhausted     Code = "exhausted"      // no room left to register another instance

	Error Code = "error" // generic fallback
)

// E keeps a Code together with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += " (" + e.Err.Error() + ")"
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E for op. A nil err is allowed.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts the outermost Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// Fault panics with an InvalidWiring error. It marks programming-time faults
// (static tables that cannot satisfy a request), never runtime conditions.
func Fault(op, msg string) {
	panic(&E{C: InvalidWiring, Op: op, Msg: msg})
}
