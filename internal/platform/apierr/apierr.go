package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the backend. The HTTP layer maps Status straight
// onto the response; everything else matches on Code.
const (
	CodeNotFound         = "not_found"
	CodeCorrupt          = "corrupt_record"
	CodeValidation       = "validation_error"
	CodeExtractionFailed = "extraction_failed"
	CodeGenerationFailed = "generation_failed"
	CodeConflict         = "conflict"
	CodeProvider         = "provider_error"
	CodeInternal         = "internal_error"
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

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Corrupt(err error) *Error {
	return New(http.StatusInternalServerError, CodeCorrupt, err)
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func ExtractionFailed(err error) *Error {
	return New(http.StatusBadGateway, CodeExtractionFailed, err)
}

func GenerationFailed(err error) *Error {
	return New(http.StatusBadGateway, CodeGenerationFailed, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func Provider(err error) *Error {
	return New(http.StatusBadGateway, CodeProvider, err)
}

// Code returns the error's API code, or CodeInternal for plain errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

// Status returns the HTTP status for err, or 500 for plain errors.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given API code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
