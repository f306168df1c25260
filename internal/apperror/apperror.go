package apperror

import (
	"errors"
	"net/http"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

type Error struct {
	Code       string
	Message    string
	StatusCode int
	Internal   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Internal
}

var (
	ErrNotFound = &Error{
		Code:       "not_found",
		Message:    "The requested resource was not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &Error{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrFileTooLarge = &Error{
		Code:       "file_too_large",
		Message:    "The uploaded image exceeds the maximum allowed size",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrMissingSource = &Error{
		Code:       "missing_source",
		Message:    "An image file or data URI is required",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &Error{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrConflict = &Error{
		Code:       "conflict",
		Message:    "A transform with this request id already exists",
		StatusCode: http.StatusConflict,
	}

	ErrNotReady = &Error{
		Code:       "not_ready",
		Message:    "The transform has not finished yet",
		StatusCode: http.StatusConflict,
	}

	ErrInternal = &Error{
		Code:       "internal_error",
		Message:    "An unexpected error occurred. Please try again later",
		StatusCode: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &Error{
		Code:       "service_unavailable",
		Message:    "Service temporarily unavailable. Please try again later",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrDecodeFailed = &Error{
		Code:       string(transform.KindDecode),
		Message:    "The image could not be read. It may be corrupt or in an unsupported format",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrEncodeFailed = &Error{
		Code:       string(transform.KindEncode),
		Message:    "The image could not be converted to the requested format",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrSurfaceUnavailable = &Error{
		Code:       string(transform.KindContext),
		Message:    "The image is too large to process",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrInvalidTransform = &Error{
		Code:       string(transform.KindInvalid),
		Message:    "Invalid transform options",
		StatusCode: http.StatusBadRequest,
	}
)

func New(code, message string, statusCode int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Wrap(err error, appErr *Error) *Error {
	return &Error{
		Code:       appErr.Code,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
		Internal:   err,
	}
}

func WrapWithMessage(err error, code, message string, statusCode int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// FromTransform maps a transform failure to its HTTP error. Invalid
// requests keep the transform's own message since it names the bad field.
func FromTransform(err error) *Error {
	kind, ok := transform.KindOf(err)
	if !ok {
		return Wrap(err, ErrInternal)
	}
	switch kind {
	case transform.KindDecode:
		return Wrap(err, ErrDecodeFailed)
	case transform.KindEncode:
		return Wrap(err, ErrEncodeFailed)
	case transform.KindContext:
		return Wrap(err, ErrSurfaceUnavailable)
	default:
		return WrapWithMessage(err, ErrInvalidTransform.Code, err.Error(), ErrInvalidTransform.StatusCode)
	}
}

func Is(err error, target *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func SafeMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}

func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal.Code
}
