package core

import (
	"errors"
	"fmt"
)

// Kind classifies an orchestrator error for transport mapping.
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidAnswers  Kind = "INVALID_ANSWERS"
	KindInvalidFeedback Kind = "INVALID_FEEDBACK"
	KindSequence        Kind = "SEQUENCE_ERROR"
	KindUpstream        Kind = "UPSTREAM_FAILURE"
)

// Error is a structured orchestrator error surfaced directly to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind, or empty string for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewInvalidInput flags a malformed or empty client-supplied field.
func NewInvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// NewNotFound flags an unknown session ID.
func NewNotFound(sessionID string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("session %s not found", sessionID)}
}

// NewInvalidAnswers flags an answer map referencing unknown or missing
// current-round question IDs.
func NewInvalidAnswers(message string) *Error {
	return &Error{Kind: KindInvalidAnswers, Message: message}
}

// NewInvalidFeedback flags feedback naming a domain outside the session history.
func NewInvalidFeedback(message string) *Error {
	return &Error{Kind: KindInvalidFeedback, Message: message}
}

// NewSequenceError flags an operation called out of allowed state order.
func NewSequenceError(message string) *Error {
	return &Error{Kind: KindSequence, Message: message}
}

// NewUpstreamFailure wraps a failed or unusable collaborator call.
func NewUpstreamFailure(operation string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf("%s failed", operation), Err: err}
}
