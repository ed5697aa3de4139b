package domain

import (
	"fmt"
	"time"
)

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// StageReport counts the units a stage worked on.
type StageReport struct {
	Stage     string            `json:"stage"`
	Attempted int               `json:"attempted"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Errors    []string          `json:"errors,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
}

// NewStageReport starts an empty report for the named stage.
func NewStageReport(stage string) StageReport {
	return StageReport{Stage: stage, Notes: map[string]string{}}
}

// Fail counts a failed unit and keeps its error message.
func (r *StageReport) Fail(unit string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", unit, err))
}

// Note attaches a key/value detail to the report.
func (r *StageReport) Note(key string, value any) {
	if r.Notes == nil {
		r.Notes = map[string]string{}
	}
	r.Notes[key] = fmt.Sprint(value)
}

// RunSummary is the outcome of one workflow run.
type RunSummary struct {
	Workflow   string        `json:"workflow"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`
	Fatal      string        `json:"fatal,omitempty"`
}

// Totals sums the stage counters.
func (s RunSummary) Totals() StageReport {
	total := StageReport{Stage: "total"}
	for _, st := range s.Stages {
		total.Attempted += st.Attempted
		total.Succeeded += st.Succeeded
		total.Skipped += st.Skipped
		total.Failed += st.Failed
	}
	return total
}

// Status derives the run outcome. A fatal error or a run where every attempted
// unit failed is failed; any failed unit otherwise makes it partial.
func (s RunSummary) Status() RunStatus {
	if s.Fatal != "" {
		return RunFailed
	}
	t := s.Totals()
	switch {
	case t.Failed == 0:
		return RunSuccess
	case t.Succeeded == 0:
		return RunFailed
	default:
		return RunPartial
	}
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunRecord is a journaled run as read back from the run journal.
type RunRecord struct {
	ID         int64     `json:"id"`
	Workflow   string    `json:"workflow"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Detail     string    `json:"detail,omitempty"`
}
