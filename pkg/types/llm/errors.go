package llm

import "github.com/pkg/errors"

// ClientError is a model client failure tagged with retryability. Transient
// faults (rate limiting, network hiccups, server errors) are retryable;
// malformed requests, authentication, and quota failures are not.
type ClientError struct {
	Err       error
	Retryable bool
}

func (e *ClientError) Error() string {
	return e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as a transient client failure.
func NewRetryableError(err error) *ClientError {
	return &ClientError{Err: err, Retryable: true}
}

// NewFatalError wraps err as a non-retryable client failure.
func NewFatalError(err error) *ClientError {
	return &ClientError{Err: err, Retryable: false}
}

// IsRetryable reports whether err is a client error flagged retryable.
// Errors without a retryability tag are treated as non-retryable, so an
// unclassified fault fails the session instead of burning retry budget.
func IsRetryable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Retryable
	}
	return false
}
