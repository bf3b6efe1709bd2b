package summarizer

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when the selected provider has no API key.
var ErrMissingCredential = errors.New("AI provider API key is not configured")

// UpstreamError reports a failed call to the AI provider.
type UpstreamError struct {
	Provider string
	Status   int // HTTP status, 0 when the request never got a response
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
