package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures for retry routing.
type ErrorKind string

const (
	ErrRateLimited ErrorKind = "rate-limited"
	ErrTransient   ErrorKind = "transient"
	ErrFatal       ErrorKind = "fatal"
)

// ProviderError is a failure returned by an LLM or enrichment backend.
type ProviderError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider error (%s, status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// IsRateLimited reports whether err is a rate-limit provider error.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrRateLimited
}

// IsRetryable reports whether err is worth retrying (rate limits and
// transient failures). Unknown errors count as transient.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind != ErrFatal
	}
	return true
}

// ParseError means model output could not be turned into usable sections
// even after repair. It aborts the drafting stage.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// ChartGenerationError means diagram generation exhausted its retry budget
// or hit a fatal provider error. It degrades the section, not the run.
type ChartGenerationError struct {
	ChartType ChartType
	Attempts  int
	LastErr   error
}

func (e *ChartGenerationError) Error() string {
	return fmt.Sprintf("chart generation failed (%s after %d attempts): %v", e.ChartType, e.Attempts, e.LastErr)
}

func (e *ChartGenerationError) Unwrap() error { return e.LastErr }

// EnrichmentError wraps a non-fatal per-section enrichment failure.
type EnrichmentError struct {
	Stage   string // image, logos, diagram
	Section string
	Err     error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment %s failed for section %q: %v", e.Stage, e.Section, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }
