package types

import (
	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/db"
	"github.com/tabrown76/Aramark-Scripts/internal/scheduler"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	// Running is how many automations are mid-run.
	Running int `json:"running"`
}

// RunScriptRequest is the body of the toggle endpoints.
type RunScriptRequest struct {
	SetToConcert *bool `json:"setToConcert"`
}

type RunAutomationRequest struct {
	Name         string `path:"name" json:"-"`
	SetToConcert *bool  `json:"setToConcert"`
	// Mode is an alternative to SetToConcert: "surge" or "normal".
	Mode string `json:"mode,omitempty"`
}

type RunResponse struct {
	Message string             `json:"message"`
	Run     *automation.Report `json:"run,omitempty"`
}

type ListRunsRequest struct {
	Limit int `form:"limit"`
}

type ListRunsResponse struct {
	Runs []db.RunSummary `json:"runs"`
}

type GetRunResponse struct {
	Run *automation.Report `json:"run"`
}

type AutomationState struct {
	Name string `json:"name"`
	// Mode is the last applied mode, empty when no run has completed.
	Mode         string `json:"mode,omitempty"`
	Running      bool   `json:"running"`
	RunningSince string `json:"runningSince,omitempty"`
	// Credentials is where the portal login comes from: keyring, config or empty.
	Credentials string `json:"credentials"`
}

type StateResponse struct {
	Automations []AutomationState `json:"automations"`
	Schedules   []scheduler.Entry `json:"schedules"`
	DryRun      bool              `json:"dryRun"`
}
