package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind categorizes application errors for HTTP status mapping and for
// turning probe failures into check results.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the request was malformed (HTTP 400).
	InvalidInput
	// Unreachable indicates the target could not be reached.
	Unreachable
	// Timeout indicates the target took too long to respond.
	Timeout
	// ParsingFailed indicates a response could not be parsed.
	ParsingFailed
	// RateLimited indicates an upstream API refused the call with HTTP 429.
	RateLimited
	// NotConfigured indicates a collaborator is missing credentials or an address.
	NotConfigured
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case ParsingFailed:
		return "parsing_failed"
	case RateLimited:
		return "rate_limited"
	case NotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the upstream, if any
	Message        string
	Fields         map[string][]string // field-level messages for InvalidInput
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of the first AppError in err's chain. Bare deadline
// and network errors are classified as Timeout and Unreachable.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout
		}
		return Unreachable
	}
	return Unknown
}
