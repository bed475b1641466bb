package model

import (
	"errors"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrNoConverter       = errors.New("no vcf converter configured")
	ErrManifestHeader    = errors.New("invalid manifest header")
	ErrMissingPayload    = errors.New("event has no payload")
	ErrEmptyOutput       = errors.New("genotyper output is empty")
	ErrTrailingData      = errors.New("trailing data after JSON value")
)

// BatchError aborts the whole run. It is returned before any job is
// dispatched, or after all of them finished when the result can't be
// persisted.
type BatchError struct {
	Stage string
	Err   error
}

func (e *BatchError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a BatchError of a given stage, nil stays nil.
func Fatal(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &BatchError{Stage: stage, Err: err}
}
