// Package memerr is the tagged error taxonomy returned by the memory engine
// to callers. Every public operation that fails returns an *Error (or wraps
// one); callers distinguish failure classes with errors.Is/errors.As rather
// than string matching.
package memerr

import (
	"errors"
	"fmt"
)

// Code classifies a failure into one of the tiers the core distinguishes.
type Code string

const (
	// InvalidInput covers empty text, malformed ids, out-of-range thresholds.
	InvalidInput Code = "invalid_input"

	// NotFound covers operations on missing or already-deleted rows.
	NotFound Code = "not_found"

	// NotConfigured covers operations that require an embedder or LLM
	// descriptor the caller never configured.
	NotConfigured Code = "not_configured"

	// Backend covers storage-engine errors, propagated unchanged.
	Backend Code = "backend"

	// Embedding covers embedding-adapter failures.
	Embedding Code = "embedding"

	// LLM covers chat-completion-adapter failures.
	LLM Code = "llm"
)

// Error is the tagged error returned to callers of the core API.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, memerr.New(memerr.NotFound, "")) ... but the idiomatic
// check is HasCode(err, memerr.NotFound) below; Is exists so sentinel-style
// comparisons against a bare Code-only Error also work.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New constructs a tagged error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a tagged error wrapping an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err is (or wraps) a *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
