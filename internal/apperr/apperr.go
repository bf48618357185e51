package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure that is reported back to an operator
type Kind string

const (
	KindCredentialsMissing Kind = "credentials_missing"
	KindNetwork            Kind = "network_error"
	KindAuthentication     Kind = "authentication_error"
	KindMalformedResponse  Kind = "malformed_response"
	KindUnexpectedStatus   Kind = "unexpected_status"
	KindImageUnreachable   Kind = "image_unreachable"
	KindPersistence        Kind = "persistence_failure"
	KindNotFound           Kind = "not_found"
	KindConfiguration      Kind = "configuration"
	KindUnknown            Kind = "unknown"
)

// Error is a failure with a Kind and a human-readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind wrapping err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
