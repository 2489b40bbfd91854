package kb

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an API failure for retry and display decisions.
type ErrorKind string

const (
	// KindValidation covers malformed requests (HTTP 400/422) and
	// client-side precondition failures. Never retried; the server
	// message is surfaced verbatim.
	KindValidation ErrorKind = "validation"

	// KindAuth covers HTTP 401. Never retried; the caller should
	// re-enter credentials.
	KindAuth ErrorKind = "auth"

	// KindNotFound covers HTTP 404.
	KindNotFound ErrorKind = "not_found"

	// KindQuota covers HTTP 403 plan/row limits.
	KindQuota ErrorKind = "quota"

	// KindTransient covers timeouts, connection failures, HTTP 5xx and
	// 429. Safe to retry with backoff.
	KindTransient ErrorKind = "transient"

	// KindUnsupported covers operations the target resource cannot
	// perform, such as replacing metadata on a table document.
	KindUnsupported ErrorKind = "unsupported"
)

// APIError is the error returned for any failed knowledge-base call.
// Status is zero when the request never reached the server.
type APIError struct {
	Kind       ErrorKind
	Status     int
	Message    string
	RetryAfter int // seconds, from a 429 Retry-After header; 0 if absent
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("knowledge base: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("knowledge base: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the call may be safely reissued.
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransient
}

// IsRetryable reports whether err wraps a retryable APIError or a plain
// network failure.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// IsKind reports whether err wraps an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func validationError(format string, args ...any) *APIError {
	return &APIError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// classifyStatus maps an HTTP response status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindQuota
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindValidation
	}
}
