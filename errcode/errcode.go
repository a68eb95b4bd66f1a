package errcode

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable). They double as the prefix of diagnostic
// notes so the backend can group failures.
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	NotReady      Code = "not_ready"
	Timeout       Code = "timeout"

	BusError  Code = "bus_error" // I2C NAK or short transfer
	Protocol  Code = "protocol"  // malformed or unexpected device reply
	Transport Code = "transport" // modem request rejected or unanswered
	Setup     Code = "setup"     // session setup at construction
	QueueFull Code = "queue_full"
	Closed    Code = "closed"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
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
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns an *E carrying code c, operation op and cause err.
// A nil err yields nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
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
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}
