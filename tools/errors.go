package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/allocation"
	"github.com/etnz/allocation/alphavantage"
	"github.com/etnz/allocation/fetch"
	"github.com/etnz/allocation/renderer"
)

// ErrorCategory classifies tool errors so that clients can decide to retry,
// fix the input or report the error.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input.
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound indicates a referenced resource does not exist.
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryTransient indicates a temporary failure: network error,
	// timeout, rate limit.
	CategoryTransient ErrorCategory = "transient"
	// CategoryInternal indicates an unexpected error.
	CategoryInternal ErrorCategory = "internal"
)

// Error is a categorized error returned by tools.
type Error struct {
	Category ErrorCategory
	Err      error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Retryable returns true if repeating the same call might succeed.
func (e *Error) Retryable() bool { return e.Category == CategoryTransient }

// validation creates a validation error.
func validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// notFound creates a not-found error.
func notFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Classify returns the categorized form of err.
func Classify(err error) *Error {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr
	}
	category := CategoryInternal
	var (
		apiErr    *alphavantage.APIError
		statusErr *fetch.StatusError
	)
	switch {
	case errors.Is(err, allocation.ErrInvalidUserID):
		category = CategoryValidation
	case errors.Is(err, alphavantage.ErrNoData), errors.Is(err, renderer.ErrNothingToChart):
		category = CategoryNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		category = CategoryTransient
	case errors.As(err, &apiErr):
		category = CategoryValidation
		if apiErr.RateLimited() {
			category = CategoryTransient
		}
	case errors.As(err, &statusErr):
		if statusErr.Temporary() {
			category = CategoryTransient
		}
	}
	return &Error{Category: category, Err: err}
}
