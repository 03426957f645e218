package model

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRecord is returned when a record fails shape validation
	ErrInvalidRecord = errors.New("invalid record")
	// ErrEmptySelection is returned when a bulk action is attempted with nothing selected
	ErrEmptySelection = errors.New("selection is empty")
	// ErrMissingClaimant is returned when required claimant fields are empty
	ErrMissingClaimant = errors.New("missing required claimant fields")
	// ErrRequestFailed is returned when a remote call completes with a non-2xx status
	ErrRequestFailed = errors.New("request failed")
	// ErrCanceled is returned when the operation is canceled by the caller
	ErrCanceled = errors.New("operation canceled")
)

// WrapError wraps transport errors to model errors.
// It converts context.Canceled and context.DeadlineExceeded to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from the HTTP client).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
