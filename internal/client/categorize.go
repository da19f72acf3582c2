package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryNotFound         ErrorCategory = "not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryServerError      ErrorCategory = "server_error"
	ErrorCategoryUnexpectedStatus ErrorCategory = "unexpected_status"
	ErrorCategoryNoResponse       ErrorCategory = "no_response"
	ErrorCategoryRequest          ErrorCategory = "request"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory. Transport errors
// wrapping a context error (timeout, cancellation) count as no_response.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLocationNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrServerError):
		return ErrorCategoryServerError
	case errors.Is(err, ErrUnexpectedStatus):
		return ErrorCategoryUnexpectedStatus
	case errors.Is(err, ErrNoResponse),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrorCategoryNoResponse
	case errors.Is(err, ErrRequest):
		return ErrorCategoryRequest
	default:
		return ErrorCategoryUnknown
	}
}
