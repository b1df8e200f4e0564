// Package ddberr defines the error taxonomy shared by the dynokit packages.
//
// Each category pairs a sentinel error with a typed error carrying context.
// Callers match categories with errors.Is against the sentinels (or the IsX
// helpers) and dig out details with errors.As.
package ddberr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per category.
var (
	// ErrValidation is returned when input is rejected before any network call.
	ErrValidation = errors.New("invalid input")

	// ErrEncoding is returned when a value cannot be represented on the wire.
	ErrEncoding = errors.New("encoding failed")

	// ErrDecoding is returned when wire data cannot be turned back into a value.
	ErrDecoding = errors.New("decoding failed")

	// ErrRequest is returned when a network call failed after the SDK
	// exhausted its own retry policy.
	ErrRequest = errors.New("request failed")
)

// ValidationError reports malformed input detected before any I/O.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// EncodingError reports a value the wire codec cannot represent.
// Path locates the offending attribute, e.g. "user.tags[2]".
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("encode %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("encode: %s", e.Reason)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// DecodingError reports malformed wire data.
type DecodingError struct {
	Path   string
	Reason string
}

func (e *DecodingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodingError) Is(target error) bool {
	return target == ErrDecoding
}

// RequestError wraps the failure of a single network call. The SDK's retry
// policy has already run by the time one of these surfaces, so a RequestError
// is terminal for the call that produced it.
type RequestError struct {
	Op    string
	Table string
	Err   error
}

func (e *RequestError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError.
func NewValidationError(op, reason string) error {
	return &ValidationError{Op: op, Reason: reason}
}

// NewEncodingError creates an EncodingError.
func NewEncodingError(path, reason string) error {
	return &EncodingError{Path: path, Reason: reason}
}

// NewDecodingError creates a DecodingError.
func NewDecodingError(path, reason string) error {
	return &DecodingError{Path: path, Reason: reason}
}

// NewRequestError wraps err as the terminal failure of the named call.
func NewRequestError(op, table string, err error) error {
	return &RequestError{Op: op, Table: table, Err: err}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsEncoding reports whether err is an encoding error.
func IsEncoding(err error) bool {
	return errors.Is(err, ErrEncoding)
}

// IsDecoding reports whether err is a decoding error.
func IsDecoding(err error) bool {
	return errors.Is(err, ErrDecoding)
}

// IsRequest reports whether err is a terminal request error.
func IsRequest(err error) bool {
	return errors.Is(err, ErrRequest)
}
