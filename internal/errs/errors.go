package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer and for callers that need to
// decide between retrying, surfacing, or treating the outcome as unknown.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidInput covers user-correctable validation failures. Never retried.
	KindInvalidInput
	// KindInsufficientBalance is a validation failure against the local ledger.
	KindInsufficientBalance
	// KindUnauthorized means no valid session token was presented.
	KindUnauthorized
	// KindNotFound means the referenced account/wallet does not exist.
	KindNotFound
	// KindDuplicate means an import would recreate an already tracked address.
	KindDuplicate
	// KindDerivation is fatal: key derivation must abort rather than guess.
	KindDerivation
	// KindNetworkUnavailable means the RPC endpoint failed its liveness probe.
	// Retryable by the caller, not auto-retried internally.
	KindNetworkUnavailable
	// KindSubmissionRejected means the node refused the signed transaction.
	KindSubmissionRejected
	// KindConfirmationTimeout means the outcome is unknown, not failed.
	// The transaction stays pending.
	KindConfirmationTimeout
	// KindReverted means a receipt was observed with a failure status.
	KindReverted
)

type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// KindOf extracts the Kind from an error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps the taxonomy onto response codes. ConfirmationTimeout is
// deliberately absent: a timed-out send returns a 200 pending body, the
// coordinator never surfaces it as an error to the route layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindInsufficientBalance:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindNetworkUnavailable, KindSubmissionRejected:
		return http.StatusBadGateway
	case KindReverted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
