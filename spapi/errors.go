package spapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecomlab/go-buybox/models"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the upstream rejected the request for quota.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrServer indicates a server-side fault (HTTP 5xx).
type ErrServer struct {
	Err error
}

func (e ErrServer) Error() string {
	return fmt.Errorf("server: %w", e.Err).Error()
}

func (e ErrServer) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates an unknown identifier (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrInvalidInput indicates a malformed identifier or request (HTTP 400).
type ErrInvalidInput struct {
	Err error
}

func (e ErrInvalidInput) Error() string {
	return fmt.Errorf("invalid_input: %w", e.Err).Error()
}

func (e ErrInvalidInput) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates the credential precondition failed (401/403).
type ErrUnauthorized struct {
	Err error
}

func (e ErrUnauthorized) Error() string {
	return fmt.Errorf("unauthorized: %w", e.Err).Error()
}

func (e ErrUnauthorized) Unwrap() error {
	return e.Err
}

// ErrExhausted indicates a transient failure survived every attempt.
type ErrExhausted struct {
	Attempts int
	Err      error
}

func (e ErrExhausted) Error() string {
	return fmt.Errorf("exhausted after %d attempts: %w", e.Attempts, e.Err).Error()
}

func (e ErrExhausted) Unwrap() error {
	return e.Err
}

// isTransient reports whether retrying the request may succeed.
func isTransient(err error) bool {
	var rateLimited ErrRateLimited
	var server ErrServer
	var timeout ErrTimeout
	var conn ErrConnection
	return errors.As(err, &rateLimited) ||
		errors.As(err, &server) ||
		errors.As(err, &timeout) ||
		errors.As(err, &conn)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	// Exhausted wraps the last transient error, so it must be checked
	// before the inner type matches.
	var exhausted ErrExhausted
	if errors.As(err, &exhausted) {
		return "exhausted"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var server ErrServer
	if errors.As(err, &server) {
		return "server"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var invalid ErrInvalidInput
	if errors.As(err, &invalid) {
		return "invalid_input"
	}
	var unauthorized ErrUnauthorized
	if errors.As(err, &unauthorized) {
		return "unauthorized"
	}
	return "other"
}

// ClassifyFailure converts a client error into the per-identifier
// failure record the orchestrator attaches to results.
func ClassifyFailure(err error) *models.Failure {
	if err == nil {
		return nil
	}

	var exhausted ErrExhausted
	if errors.As(err, &exhausted) {
		return &models.Failure{Kind: models.FailureExhausted, Message: err.Error()}
	}

	// A per-attempt timeout is ErrTimeout (transient); a bare context
	// error means the run itself was cancelled.
	if !isTransient(err) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return &models.Failure{Kind: models.FailureCancelled, Message: "run cancelled"}
	}

	if isTransient(err) {
		return &models.Failure{Kind: models.FailureTransient, Message: err.Error()}
	}

	return &models.Failure{Kind: models.FailurePermanent, Message: err.Error()}
}
