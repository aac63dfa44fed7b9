package reason

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntitiesRecognized means no candidate entity resolved against the
	// graph. The pipeline short-circuits to a "no relevant knowledge found"
	// response; this is not a request failure.
	ErrNoEntitiesRecognized = errors.New("no entities recognized")

	// ErrNoPathsFound means discovery or ranking left no usable paths.
	// Handled the same way as ErrNoEntitiesRecognized.
	ErrNoPathsFound = errors.New("no reasoning paths found")

	// ErrSynthesisFailed means the generation service failed after retries.
	// This is the only condition surfaced to the caller as a failure; the
	// assembled context is still returned for inspection.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
)

// SynthesisError wraps ErrSynthesisFailed and carries the partial result
// (entities, evidence paths, zero confidence) assembled before generation
// failed.
type SynthesisError struct {
	Partial *Result
	cause   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSynthesisFailed, e.cause)
}

func (e *SynthesisError) Unwrap() error {
	return ErrSynthesisFailed
}

// Cause returns the underlying generation-service error.
func (e *SynthesisError) Cause() error {
	return e.cause
}
