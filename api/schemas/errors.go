package schemas

import (
	"errors"
	"fmt"
)

// -- Error Taxonomy --

// Sentinel errors for the reporting core. Callers classify failures with
// errors.Is against these; the structured types below carry the offending
// values for logging.
var (
	// ErrInvalidFilterValue marks a filter element outside its closed enum.
	ErrInvalidFilterValue = errors.New("invalid filter value")
	// ErrInvalidIdentifier marks free-text input that failed allowlist
	// validation. Security relevant: the value may be attacker controlled.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidPipelineStage marks a stage tag outside the fixed allowed
	// set. This is a programming defect, never retried.
	ErrInvalidPipelineStage = errors.New("invalid pipeline stage")
	// ErrWrongSourceTable marks job results tagged with an unexpected
	// collection name.
	ErrWrongSourceTable = errors.New("wrong source collection")
	// ErrUpstreamQueryFailure marks a datastore error executing a stage or
	// job. Full detail goes to the internal log only.
	ErrUpstreamQueryFailure = errors.New("upstream query failure")
)

// FilterValueError reports a filter element outside its closed enum.
type FilterValueError struct {
	Field string
	Value string
}

func (e *FilterValueError) Error() string {
	return fmt.Sprintf("%s: %s is not a legal %s value", ErrInvalidFilterValue, e.Value, e.Field)
}

func (e *FilterValueError) Unwrap() error { return ErrInvalidFilterValue }

// IdentifierError reports free-text input that failed allowlist validation.
type IdentifierError struct {
	Field string
	Value string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("%s: %s value %q rejected", ErrInvalidIdentifier, e.Field, e.Value)
}

func (e *IdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// PipelineStageError reports a stage with a tag outside the allowed set.
type PipelineStageError struct {
	Tag string
}

func (e *PipelineStageError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidPipelineStage, e.Tag)
}

func (e *PipelineStageError) Unwrap() error { return ErrInvalidPipelineStage }

// SourceTableError reports job results attributed to a collection the
// aggregator did not ask about.
type SourceTableError struct {
	Collection string
}

func (e *SourceTableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrWrongSourceTable, e.Collection)
}

func (e *SourceTableError) Unwrap() error { return ErrWrongSourceTable }

// QueryError wraps a datastore failure with the collection and operation
// that produced it.
type QueryError struct {
	Collection string
	Op         string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %v", ErrUpstreamQueryFailure, e.Op, e.Collection, e.Err)
}

// Unwrap exposes both the sentinel and the driver error to errors.Is.
func (e *QueryError) Unwrap() []error { return []error{ErrUpstreamQueryFailure, e.Err} }
