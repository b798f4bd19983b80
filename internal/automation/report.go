package automation

import (
	"fmt"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// UnitStatus is the outcome of one tab or vendor.
type UnitStatus string

const (
	StatusUpdated   UnitStatus = "updated"
	StatusConverged UnitStatus = "converged"
	StatusFailed    UnitStatus = "failed"
)

// UnitResult is the outcome for a single menu tab or vendor.
type UnitResult struct {
	ID      string           `json:"id"`
	Status  UnitStatus       `json:"status"`
	Error   string           `json:"error,omitempty"`
	Changes []pricing.Change `json:"changes,omitempty"`
}

// Report summarises one automation run.
type Report struct {
	RunID      string       `json:"runId"`
	Automation string       `json:"automation"`
	Mode       pricing.Mode `json:"mode"`
	Trigger    string       `json:"trigger,omitempty"`
	DryRun     bool         `json:"dryRun"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Error      string       `json:"error,omitempty"`
	Units      []UnitResult `json:"units"`
}

func newReport(automation string, mode pricing.Mode, dryRun bool) *Report {
	return &Report{
		Automation: automation,
		Mode:       mode,
		DryRun:     dryRun,
		StartedAt:  time.Now(),
		Units:      []UnitResult{},
	}
}

func (r *Report) add(u UnitResult) {
	r.Units = append(r.Units, u)
}

// Counts returns how many units ended in each status.
func (r *Report) Counts() (updated, converged, failed int) {
	for _, u := range r.Units {
		switch u.Status {
		case StatusUpdated:
			updated++
		case StatusConverged:
			converged++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Summary is a one-line description for logs and the trigger response.
func (r *Report) Summary() string {
	updated, converged, failed := r.Counts()
	s := fmt.Sprintf("%s set to %s: %d updated, %d already set, %d failed",
		r.Automation, r.Mode, updated, converged, failed)
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

func failedUnit(id string, err error) UnitResult {
	return UnitResult{ID: id, Status: StatusFailed, Error: err.Error()}
}
