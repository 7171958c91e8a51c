package llm

import "fmt"

// ErrorKind partitions stage failures into the three classes the pipeline
// reacts to differently.
type ErrorKind int

const (
	// Transient marks failures worth retrying on a later cycle: the service
	// was unreachable, overloaded, or timed out.
	Transient ErrorKind = iota

	// ParseFailure marks responses that came back but could not be decoded
	// into the expected JSON shape. The affected item gets its sentinel
	// result and the batch continues.
	ParseFailure

	// InvariantViolation marks responses that decoded fine but contradict
	// the request, such as a summary carrying a foreign post id.
	InvariantViolation
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case ParseFailure:
		return "parse_failure"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// StageError is the error type every stage returns. Callers branch on Kind,
// never on the message.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

func newTransient(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: Transient, Err: err}
}

func newParseFailure(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: ParseFailure, Err: err}
}

func newInvariantViolation(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: InvariantViolation, Err: err}
}

// requestTimeoutError is returned when a single chat-completion call exhausts
// its per-request deadline while the surrounding job is still alive. It
// implements net.Error so the retry layer treats it as retryable; it
// deliberately does not unwrap to context.DeadlineExceeded, which would be
// treated as terminal.
type requestTimeoutError struct {
	msg string
}

func (e *requestTimeoutError) Error() string   { return e.msg }
func (e *requestTimeoutError) Timeout() bool   { return true }
func (e *requestTimeoutError) Temporary() bool { return true }
