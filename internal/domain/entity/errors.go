package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrLinkClosed = errors.New("transport link is closed")
)

// ConnectionError means the tool server could not be reached at all.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to tool server %q: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError is a failed request over an established link.
type TransportError struct {
	Op   string
	Tool string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type CompletionErrorKind string

const (
	CompletionMalformed   CompletionErrorKind = "malformed"
	CompletionRateLimited CompletionErrorKind = "rate_limited"
	CompletionAuth        CompletionErrorKind = "auth"
	CompletionUnavailable CompletionErrorKind = "unavailable"
	CompletionTruncated   CompletionErrorKind = "truncated"
)

type CompletionError struct {
	Kind       CompletionErrorKind
	StatusCode int
	Err        error
}

func NewCompletionError(kind CompletionErrorKind, err error) *CompletionError {
	return &CompletionError{Kind: kind, Err: err}
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Retryable reports whether backing off and retrying the same request may succeed.
func (e *CompletionError) Retryable() bool {
	return e.Kind == CompletionRateLimited
}

type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool '%s'", e.Name)
}

type CatalogError struct {
	Duplicates []string
	Reason     string
}

func (e *CatalogError) Error() string {
	if len(e.Duplicates) > 0 {
		return "ambiguous tool catalog: duplicate tool names " + strings.Join(e.Duplicates, ", ")
	}
	return "invalid tool catalog: " + e.Reason
}

// TurnLimitError is returned when the model keeps requesting tools past the turn bound.
// PartialText holds the assistant text produced before the bound was hit.
type TurnLimitError struct {
	Limit       int
	PartialText string
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("turn limit exceeded after %d turns", e.Limit)
}

type FailureKind string

const (
	FailureInvalidQuery FailureKind = "invalid_query"
	FailureCompletion   FailureKind = "completion"
	FailureTurnLimit    FailureKind = "turn_limit_exceeded"
	FailureCancelled    FailureKind = "cancelled"
	FailureInternal     FailureKind = "internal"
)

// OrchestrationError is what RunQuery returns for every failed run.
type OrchestrationError struct {
	Kind  FailureKind
	RunID string
	Turn  int
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("run %s failed at turn %d (%s): %v", e.RunID, e.Turn, e.Kind, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }
