package transform

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindDecode  ErrorKind = "decode_error"
	KindContext ErrorKind = "context_error"
	KindEncode  ErrorKind = "encode_error"
	KindInvalid ErrorKind = "invalid_request"
)

var (
	ErrDecode         = errors.New("transform: source could not be decoded")
	ErrContext        = errors.New("transform: rendering surface unavailable")
	ErrEncode         = errors.New("transform: output could not be encoded")
	ErrInvalidRequest = errors.New("transform: invalid request")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindContext:
		return ErrContext
	case KindEncode:
		return ErrEncode
	default:
		return ErrInvalidRequest
	}
}

// Error is a failed transform tagged with the originating request id.
// errors.Is matches both the kind's sentinel and the underlying cause.
type Error struct {
	Kind      ErrorKind
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newError(kind ErrorKind, requestID string, format string, args ...any) *Error {
	return &Error{Kind: kind, RequestID: requestID, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the transform error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
