// Package apperr defines the error kinds shared by the services and the
// HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	MethodNotSupported
	RemoteCallFailed
	ClassificationMalformed
	PersistenceFailed
	ModelOutputMalformed
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case MethodNotSupported:
		return "method_not_supported"
	case RemoteCallFailed:
		return "remote_call_failed"
	case ClassificationMalformed:
		return "classification_malformed"
	case PersistenceFailed:
		return "persistence_failed"
	case ModelOutputMalformed:
		return "model_output_malformed"
	default:
		return "internal"
	}
}

// Error carries a kind, a short user-facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Invalid(msg string) error { return New(Validation, msg) }

func Remote(msg string, err error) error { return Wrap(RemoteCallFailed, msg, err) }

func Persistence(msg string, err error) error { return Wrap(PersistenceFailed, msg, err) }

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the short message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case MethodNotSupported:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
