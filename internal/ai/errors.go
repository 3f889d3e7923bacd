package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means the model needs an accelerator this host
	// does not have.
	ErrModelUnavailable = errors.New("model requires an accelerator that is not present")
	ErrUnknownModel     = errors.New("unknown model")
)

// UpstreamError marks a failed call to one of the external services
// (transcription, embedding, inference) with the service that failed.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
