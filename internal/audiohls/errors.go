package audiohls

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when a required parameter is missing or
	// malformed. It is always detected before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when resolution succeeded but no variant is
	// audio-only and segmented.
	ErrNotFound = errors.New("no audio-only segmented variant")

	// ErrUpstream matches every *UpstreamError via errors.Is.
	ErrUpstream = errors.New("upstream request failed")
)

// ResolutionError reports a failed invocation of the metadata extractor.
// Diagnostic holds the tool's own error output, trimmed.
type ResolutionError struct {
	Diagnostic string
	Err        error
}

func (e *ResolutionError) Error() string {
	if e.Diagnostic != "" {
		return "resolve: " + e.Diagnostic
	}
	if e.Err != nil {
		return "resolve: " + e.Err.Error()
	}
	return "resolve: failed"
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func newResolutionError(diagnostic string, err error) *ResolutionError {
	return &ResolutionError{Diagnostic: strings.TrimSpace(diagnostic), Err: err}
}

// UpstreamError reports a failed request against an origin server.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
