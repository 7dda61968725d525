package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so the HTTP boundary can pick a status code
// without inspecting causes.
type Kind string

const (
	InvalidInput         Kind = "invalid_input"
	Unauthenticated      Kind = "unauthenticated"
	Unauthorized         Kind = "unauthorized"
	NotFound             Kind = "not_found"
	PaymentRequired      Kind = "payment_required"
	Conflict             Kind = "conflict"
	StorageWrite         Kind = "storage_write"
	StorageRead          Kind = "storage_read"
	SignedURLUnavailable Kind = "signed_url_unavailable"
	EmptyImageInput      Kind = "empty_image_input"
	ProviderError        Kind = "provider_error"
	UnresolvedOutput     Kind = "unresolved_output"
	EchoedInput          Kind = "echoed_input"
	IdenticalContent     Kind = "identical_content"
	Download             Kind = "download"
	Persistence          Kind = "persistence"
	WebhookVerification  Kind = "webhook_verification"
	WebhookMisconfigured Kind = "webhook_misconfigured"
	Internal             Kind = "internal"
)

var statusByKind = map[Kind]int{
	InvalidInput:         http.StatusBadRequest,
	Unauthenticated:      http.StatusUnauthorized,
	Unauthorized:         http.StatusForbidden,
	NotFound:             http.StatusNotFound,
	PaymentRequired:      http.StatusPaymentRequired,
	Conflict:             http.StatusConflict,
	StorageWrite:         http.StatusInternalServerError,
	StorageRead:          http.StatusInternalServerError,
	SignedURLUnavailable: http.StatusInternalServerError,
	EmptyImageInput:      http.StatusInternalServerError,
	ProviderError:        http.StatusBadGateway,
	UnresolvedOutput:     http.StatusBadGateway,
	EchoedInput:          http.StatusBadGateway,
	IdenticalContent:     http.StatusBadGateway,
	Download:             http.StatusInternalServerError,
	Persistence:          http.StatusInternalServerError,
	WebhookVerification:  http.StatusBadRequest,
	WebhookMisconfigured: http.StatusInternalServerError,
	Internal:             http.StatusInternalServerError,
}

// HTTPStatus returns the response status for a kind. Unknown kinds map to 500.
func HTTPStatus(kind Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a kind, the stage that produced it, a message that is safe to
// show to the caller, and the underlying cause.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func New(kind Kind, stage, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
