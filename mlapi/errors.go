package mlapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUpstream indicates a non-2xx response or a malformed body from a data
// endpoint. Status is zero when the failure happened before a response
// arrived.
type ErrUpstream struct {
	Status int
	URL    string
	Err    error
}

func (e ErrUpstream) Error() string {
	if e.Status != 0 {
		if e.Err != nil {
			return fmt.Sprintf("upstream: status %d from %s: %v", e.Status, e.URL, e.Err)
		}
		return fmt.Sprintf("upstream: status %d from %s", e.Status, e.URL)
	}
	return fmt.Sprintf("upstream: %s: %v", e.URL, e.Err)
}

func (e ErrUpstream) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error, status int) string {
	switch status {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status != 0 {
		return "upstream"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	return "other"
}
