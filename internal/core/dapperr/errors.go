// Package dapperr defines the adapter's error taxonomy. Each kind is a
// distinct sentinel or struct type so callers use errors.Is/errors.As
// instead of sniffing error strings.
package dapperr

import "fmt"

// Sentinel kinds with no payload beyond a message.
var (
	// ErrSessionShuttingDown is returned to any operation that observes
	// teardown in progress; pending slots resolve to it silently.
	ErrSessionShuttingDown = &Error{Kind: SessionShuttingDown, Message: "session shutting down"}
)

// Kind enumerates the error taxonomy.
type Kind int

const (
	Unknown Kind = iota
	ProtocolError
	CapabilityViolation
	PreconditionFailed
	BackendTimeout
	BackendError
	FramingErrorKind
	TransportErrorKind
	LifecycleViolation
	HotReloadError
	SessionShuttingDown
	BackendOverloaded
	InvalidHandle
	EvaluationError
)

func (k Kind) String() string {
	switch k {
	case ProtocolError:
		return "ProtocolError"
	case CapabilityViolation:
		return "CapabilityViolation"
	case PreconditionFailed:
		return "PreconditionFailed"
	case BackendTimeout:
		return "BackendTimeout"
	case BackendError:
		return "BackendError"
	case FramingErrorKind:
		return "FramingError"
	case TransportErrorKind:
		return "TransportError"
	case LifecycleViolation:
		return "LifecycleViolation"
	case HotReloadError:
		return "HotReloadError"
	case SessionShuttingDown:
		return "SessionShuttingDown"
	case BackendOverloaded:
		return "BackendOverloaded"
	case InvalidHandle:
		return "InvalidHandle"
	case EvaluationError:
		return "EvaluationError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carrying a Kind, a short message for the
// DAP response, and an optional wrapped cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, dapperr.ErrSessionShuttingDown) and similar
// sentinel comparisons to match purely on Kind, ignoring Message/Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err, returning Unknown if err is not (or does
// not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return Unknown
}

// asError is a tiny errors.As shim kept local to avoid importing errors
// just for this single call site in callers that already do.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
