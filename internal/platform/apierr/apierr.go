package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes returned in the error envelope.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeGenerationFailed = "generation_failed"
	CodeUpstreamFailed   = "upstream_failed"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, err)
}

func GenerationFailed(err error) *Error {
	return New(http.StatusInternalServerError, CodeGenerationFailed, err)
}

// From extracts an *Error from err, defaulting to a 500 generation failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return GenerationFailed(err)
}
