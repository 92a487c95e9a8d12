package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrConfig marks invalid caller-supplied configuration, such as a chunk
// overlap that would prevent forward progress.
var ErrConfig = errors.New("invalid configuration")

// ErrUnexpectedResponse marks a 2xx reply from a backing service whose body
// is not in any recognized shape.
var ErrUnexpectedResponse = errors.New("unexpected response")

// UpstreamError reports a failure status from a backing service.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// UnavailableError reports a transport-level failure reaching a backing
// service: connection refused, DNS, or a request that exceeded its timeout.
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *UnavailableError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
