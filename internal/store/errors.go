package store

import "fmt"

// Error is a document store failure.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

// Kind classifies store failures so callers can map them without string matching.
type Kind int

// Failure kinds.
const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
	KindInvalidArgument
	KindClosed
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so wrapped variants still satisfy
// errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "document not found"}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists, Message: "document already exists"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrClosed          = &Error{Kind: KindClosed, Message: "store closed"}
)
