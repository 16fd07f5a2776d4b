package pipeline

import (
	"context"
	"time"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Report summarizes one pipeline invocation. Per-record validation errors are
// aggregated here; per-batch failures set Status to failed and Failure to the
// error. Nothing is dropped without being counted:
//
//	Input == Valid + len(Errors)
//	Loaded == Valid - Duplicates (on success)
type Report struct {
	ID         string                       `json:"id"`
	Species    string                       `json:"species"`
	Status     string                       `json:"status"`
	StartedAt  time.Time                    `json:"startedAt"`
	FinishedAt time.Time                    `json:"finishedAt"`
	Input      int                          `json:"input"`
	Valid      int                          `json:"valid"`
	Duplicates int                          `json:"duplicates"`
	Loaded     int                          `json:"loaded"`
	Errors     []occurrence.ValidationError `json:"errors,omitempty"`
	Failure    string                       `json:"failure,omitempty"`
}

// RunStore persists run reports.
type RunStore interface {
	SaveRun(ctx context.Context, r Report) error
}
