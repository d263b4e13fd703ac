package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	URL        string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Throttled reports whether the status signals rate limiting or transient
// unavailability, i.e. worth a backoff-and-retry rather than a hard failure.
func (e *HTTPError) Throttled() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}

// ServiceError is a failure of the LLM target-discovery collaborator
// (unreachable, or unusable output). Fatal for a discovery run.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
