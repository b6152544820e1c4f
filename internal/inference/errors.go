package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned before any network attempt when no credential is set.
	ErrMissingCredential = errors.New("inference credential is missing")
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("inference upstream failure")
)

// UpstreamError describes a failed or unusable response from the model endpoint.
// Status is zero when no HTTP response was received.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inference upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("inference upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
