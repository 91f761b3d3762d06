package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCorpusUnreadable signals the corpus directory does not exist or
	// cannot be read. Fatal for index builds.
	ErrCorpusUnreadable = errors.New("corpus directory unreadable")

	// ErrEmptyQuery rejects blank questions before any backend call.
	ErrEmptyQuery = errors.New("query text is empty")
)

// ParseError marks a single document that could not be parsed. Recoverable:
// ingestion skips the document and continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Backend operations that can fail at a network boundary.
const (
	OpEmbed    = "embed"
	OpGenerate = "generate"
	OpSearch   = "search"
)

// BackendError wraps a failure from an external backend (embedding,
// generation or vector search) with enough structure for the transport
// layer to map it to a status without the core knowing about HTTP.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err for the given backend operation.
func NewBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}

// AsBackendError unwraps err to a BackendError when one is present.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
