/*
errors.go - Centralized error types for the occurrence engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Per-record errors  - schema validation failures; aggregated, never fatal
  2. Per-batch errors   - dimension conflicts and load violations; fatal for
                          the run, whole transaction rolls back

USAGE:
  Callers branch on sentinels with errors.Is() and recover detail with
  errors.As():

    var lv *occurrence.LoadViolationError
    if errors.As(err, &lv) {
        log.Printf("colliding ids: %v", lv.IDs)
    }
*/
package occurrence

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDimensionConflict is returned when a resolved dimension key collides
	// with an existing key bound to a different natural value.
	ErrDimensionConflict = errors.New("dimension key conflict")

	// ErrLoadViolation is returned when a fact-table insert violates a
	// uniqueness or foreign-key constraint. The whole batch rolls back.
	ErrLoadViolation = errors.New("fact load constraint violation")
)

// =============================================================================
// REASON CODES - Field-level validation failures
// =============================================================================

type ReasonCode string

const (
	ReasonMissing    ReasonCode = "missing"
	ReasonEmpty      ReasonCode = "empty"
	ReasonNotANumber ReasonCode = "not_a_number"
	ReasonNotAnInt   ReasonCode = "not_an_integer"
	ReasonOutOfRange ReasonCode = "out_of_range"
	ReasonNegative   ReasonCode = "negative"
)

// FieldError pinpoints a single failed check: which field, why.
type FieldError struct {
	Field   string     `json:"field"`
	Code    ReasonCode `json:"code"`
	Message string     `json:"message,omitempty"`
}

// ValidationError aggregates every failed check for one excluded record.
// Transient: it exists only within a single run's report.
type ValidationError struct {
	RecordID string       `json:"recordId,omitempty"`
	Fields   []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Code))
	}
	id := e.RecordID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("record %s failed validation (%s)", id, strings.Join(parts, ", "))
}

// =============================================================================
// STRUCTURED BATCH ERRORS
// =============================================================================

// DimensionConflictError reports a surrogate key already bound to a different
// natural value. Fatal for the run.
type DimensionConflictError struct {
	Table string
	Key   int64
}

func (e *DimensionConflictError) Error() string {
	return fmt.Sprintf("dimension %s: key %d already bound to a different value", e.Table, e.Key)
}

func (e *DimensionConflictError) Unwrap() error { return ErrDimensionConflict }

// LoadViolationError names every natural identifier that collided with a row
// from a prior run. Zero rows from the offending batch commit.
type LoadViolationError struct {
	IDs []string
}

func (e *LoadViolationError) Error() string {
	return fmt.Sprintf("load aborted: %d occurrence id(s) already present: %s",
		len(e.IDs), strings.Join(e.IDs, ", "))
}

func (e *LoadViolationError) Unwrap() error { return ErrLoadViolation }
