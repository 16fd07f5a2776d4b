/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the run API. These decouple the internal report model
  from the external contract; validation is done in handlers, DTOs are pure
  data carriers.
*/
package api

import (
	"time"

	"github.com/pelagos/occurrence-engine/occurrence"
	"github.com/pelagos/occurrence-engine/pipeline"
)

// TriggerRunRequest asks for a pipeline run over staged pages.
type TriggerRunRequest struct {
	Species   string `json:"species"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// RunDTO is one pipeline run report.
type RunDTO struct {
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

func toRunDTO(r pipeline.Report) RunDTO {
	return RunDTO{
		ID:         r.ID,
		Species:    r.Species,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Input:      r.Input,
		Valid:      r.Valid,
		Duplicates: r.Duplicates,
		Loaded:     r.Loaded,
		Errors:     r.Errors,
		Failure:    r.Failure,
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
