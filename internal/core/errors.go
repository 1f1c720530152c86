package core

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a service wraps exactly one of
// these so the HTTP layer can map it to a status code with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrExternalService = errors.New("external service failure")
	// ErrOrphanEvent marks a billing event that cannot be attributed to any user.
	// It is logged and acknowledged, never retried.
	ErrOrphanEvent = errors.New("billing event cannot be attributed to a user")
)

// Error is a service error carrying a client-safe message, its category and
// optionally the underlying cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Error includes the cause for logs.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Message is the text safe to show to API clients.
func (e *Error) Message() string { return e.msg }

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Is lets a sentinel match a copy produced by withCause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind && t.msg == e.msg
}

// withCause returns a copy of the sentinel carrying cause.
func (e *Error) withCause(cause error) *Error {
	return &Error{kind: e.kind, msg: e.msg, cause: cause}
}

var (
	ErrInvalidPlan          = newError(ErrValidation, "Invalid subscription plan")
	ErrPriceNotFound        = newError(ErrNotFound, "Price not found for the requested plan and currency")
	ErrNoActiveSubscription = newError(ErrValidation, "No active subscription found for this user")
	ErrUserNotFound         = newError(ErrNotFound, "User not found")
	ErrDocumentNotFound     = newError(ErrNotFound, "Document not found")
	ErrNotDocumentOwner     = newError(ErrForbidden, "Not authorized to access this document")
	ErrProRequired          = newError(ErrForbidden, "Pro subscription required for AI enhancement")
	ErrAdminRequired        = newError(ErrForbidden, "Access denied. Admin privileges required.")
	ErrInvalidCredentials   = newError(ErrUnauthenticated, "Invalid email or password")
	ErrEmailTaken           = newError(ErrValidation, "Email already registered")
	ErrBillingProvider      = newError(ErrExternalService, "Billing provider error")
	ErrEnhancement          = newError(ErrExternalService, "Failed to enhance content with AI")
	ErrStore                = newError(ErrExternalService, "Record store error")
	ErrTokenIssue           = newError(ErrExternalService, "Failed to issue token")
)

// validationError builds an ad-hoc validation failure with a client-facing message.
func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// storeError wraps a repository failure that is not a not-found.
func storeError(op string, err error) error {
	return ErrStore.withCause(fmt.Errorf("%s: %w", op, err))
}

// ClientMessage extracts the client-safe message from a service error, or
// returns fallback when err carries none.
func ClientMessage(err error, fallback string) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Message()
	}
	return fallback
}
