// Package errcode gives the Configuration and Fatal error classes of §7 a
// stable, comparable identity, distinct from the Recoverable-framing and
// Lossy-sink classes — those never surface as a Go error, only as event
// enums and drop counters.
package errcode

// Code is a stable error identifier: a string newtype, allocation-free,
// comparable, and implementing error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes, one per §7 Configuration/Fatal case.
const (
	OK Code = "ok"

	// Configuration errors: fail at startup with a message.
	MissingELF       Code = "missing_elf"
	IllegalBufferLen Code = "illegal_buffer_len"
	TPIUStreamZero   Code = "tpiu_stream_zero"
	InvalidSource    Code = "invalid_source"

	// Fatal errors: exit with non-zero status.
	BufferAllocFailed  Code = "buffer_alloc_failed"
	SignalHandlerFailed Code = "signal_handler_failed"
	WorkerStartFailed   Code = "worker_start_failed"

	Error Code = "error" // generic fallback
)

// E wraps a Code with an operation name, a human-readable message and an
// optional underlying cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + e.Msg
	}
	return e.Op + ": " + string(e.C)
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// New builds an *E with the given code, operation and message.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap builds an *E around a cause, keeping the original error reachable
// via errors.Unwrap/errors.Is.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
