// Package domainerrors defines the coded errors the engine surfaces at its
// API boundary. Codes classify the failure; HTTP status is derived, never
// stored.
package domainerrors

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "validation_failed"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"

	// CodeInvalidParty rejects an attestation from a party without the
	// verifier role.
	CodeInvalidParty Code = "invalid_party"
	// CodeDuplicatePending rejects a second pending attestation from the
	// same party for the same vault.
	CodeDuplicatePending Code = "duplicate_pending"
	// CodeAlreadyFinalized rejects a review of an attestation that has
	// already been decided.
	CodeAlreadyFinalized Code = "already_finalized"
	// CodeInvalidTransition rejects a status change outside the
	// pending -> verified/rejected lattice.
	CodeInvalidTransition Code = "invalid_transition"
)

// Error is a coded domain error. Wrapped causes stay available to errors.Is
// and errors.As.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return e.Message + ": " + e.wrapped.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// HasCode reports whether err is a domain error carrying the given code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	return errors.As(err, &dErr) && dErr.Code == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error to the status the API responds with.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidParty:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicatePending, CodeAlreadyFinalized:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
