package service

import (
	"github.com/kjstillabower/weather-snapshot-client/internal/client"
)

// ErrorKind classifies a user-facing failure.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnavailable  ErrorKind = "unavailable"
	KindUnexpected   ErrorKind = "unexpected"
	KindNoConnection ErrorKind = "no_connection"
	KindInternal     ErrorKind = "internal"
)

// User-facing messages, one per ErrorKind.
const (
	MsgNotFound     = "Location not found. Please check your ZIP code."
	MsgRateLimited  = "Too many requests. Please wait a moment and try again."
	MsgUnavailable  = "Weather service is temporarily unavailable."
	MsgUnexpected   = "Unable to fetch weather data. Please try again."
	MsgNoConnection = "No internet connection. Please check your network."
	MsgInternal     = "Something went wrong. Please try again."
)

// UserError is the only error type the service returns from a lookup. It
// carries a safe message and deliberately does not wrap the cause.
type UserError struct {
	Kind    ErrorKind
	Message string
}

func (e *UserError) Error() string { return e.Message }

// MapError converts a backend failure into its UserError.
func MapError(err error) *UserError {
	switch client.CategorizeError(err) {
	case client.ErrorCategoryNotFound:
		return &UserError{Kind: KindNotFound, Message: MsgNotFound}
	case client.ErrorCategoryRateLimited:
		return &UserError{Kind: KindRateLimited, Message: MsgRateLimited}
	case client.ErrorCategoryServerError:
		return &UserError{Kind: KindUnavailable, Message: MsgUnavailable}
	case client.ErrorCategoryUnexpectedStatus:
		return &UserError{Kind: KindUnexpected, Message: MsgUnexpected}
	case client.ErrorCategoryNoResponse:
		return &UserError{Kind: KindNoConnection, Message: MsgNoConnection}
	default:
		return &UserError{Kind: KindInternal, Message: MsgInternal}
	}
}
