package functions

import (
	"errors"
	"net/http"
)

// Protocol-level failures. Business failures are never errors here: handlers
// report them as Result{OK: false} so the agent can relay them.
var (
	ErrBadPayload       = errors.New("functions: bad payload")
	ErrFunctionNotFound = errors.New("functions: function not found")
	ErrInternal         = errors.New("functions: internal error")
)

// Wire codes.
const (
	CodeBadPayload       = "BAD_PAYLOAD"
	CodeFunctionNotFound = "FUNCTION_NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
)

// Code maps an error to its wire code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadPayload):
		return CodeBadPayload
	case errors.Is(err, ErrFunctionNotFound):
		return CodeFunctionNotFound
	default:
		return CodeInternalError
	}
}

// HTTPStatus maps an error to the response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrFunctionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PayloadError is a BadPayload failure with field-level diagnostics.
type PayloadError struct {
	Diagnostics Diagnostics
}

func (e *PayloadError) Error() string { return "functions: invalid webhook payload" }

func (e *PayloadError) Unwrap() error { return ErrBadPayload }
