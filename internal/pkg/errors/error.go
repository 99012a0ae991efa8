package xerrors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common reusable application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized access")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict: resource already exists")
	ErrInternal          = errors.New("internal server error")
	ErrRateLimited       = errors.New("too many requests")
	ErrSessionExpired    = errors.New("session expired or invalid")
	ErrBadRequest        = errors.New("bad request")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrInvalidOTP        = errors.New("invalid or expired verification code")
	ErrNotVerified       = errors.New("account not verified")
	ErrInvalidTransition = errors.New("illegal state transition")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrNetwork            = errors.New("network failure")
	ErrTimeout            = errors.New("request timed out")
	ErrValidation         = errors.New("validation failed")
	ErrRejected           = errors.New("request rejected")
)

// Error codes shared by the storefront API and its clients.
const (
	CodeAuthFailed         = "AUTH_001"
	CodeForbidden          = "AUTH_002"
	CodeInvalidCredentials = "AUTH_003"
	CodeAccountLocked      = "AUTH_004"
	CodeTokenExpired       = "AUTH_005"
	CodeInvalidToken       = "AUTH_006"
	CodeValidation         = "VAL_001"
	CodeInvalidPhone       = "VAL_002"
	CodeInvalidAddress     = "VAL_005"
	CodeUserNotFound       = "USER_001"
	CodeUserExists         = "USER_002"
	CodeRateLimited        = "RATE_001"
	CodeNotInCollection    = "CART_001"
	CodeOrderTransition    = "ORDER_001"
	CodeInternal           = "INTERNAL_001"
	CodeBadRequest         = "REQ_001"
)

// Kind classifies failures surfaced by the client core.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindUnauthenticated
	KindSessionExpired
	KindNetworkFailure
	KindTimeout
	KindValidationFailure
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindSessionExpired:
		return "session_expired"
	case KindNetworkFailure:
		return "network_failure"
	case KindTimeout:
		return "timeout"
	case KindValidationFailure:
		return "validation_failure"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindSessionExpired:
		return ErrSessionExpired
	case KindNetworkFailure:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindValidationFailure:
		return ErrValidation
	case KindRejected:
		return ErrRejected
	default:
		return nil
	}
}

// Error is the typed failure returned by client-facing operations.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel that corresponds to the error kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// New builds a typed error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a ValidationFailure for input rejected before any network call.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidationFailure, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Transport classifies a transport-level failure as Timeout or NetworkFailure.
func Transport(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindNetworkFailure, Message: "network request failed", Err: err}
}

// KindOf returns the kind of a typed error, KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the server error code carried by err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
