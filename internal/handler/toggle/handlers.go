package toggle

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/db"
	"github.com/tabrown76/Aramark-Scripts/internal/httputil"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
	"github.com/tabrown76/Aramark-Scripts/internal/svc"
	"github.com/tabrown76/Aramark-Scripts/internal/types"
)

const maxRunsLimit = 200

// RunScriptHandler serves the toggle endpoints (/run-jpjm-script,
// /run-apl-script) for one automation.
func RunScriptHandler(svcCtx *svc.ServiceContext, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RunScriptRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.SetToConcert == nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "setToConcert is required")
			return
		}
		run(w, svcCtx, name, pricing.ModeFor(*req.SetToConcert), "http")
	}
}

// RunAutomationHandler runs an automation by name.
func RunAutomationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RunAutomationRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		var mode pricing.Mode
		switch {
		case req.SetToConcert != nil:
			mode = pricing.ModeFor(*req.SetToConcert)
		case req.Mode != "":
			m, err := pricing.ParseMode(req.Mode)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			mode = m
		default:
			httputil.ErrorWithCode(w, http.StatusBadRequest, "setToConcert or mode is required")
			return
		}
		run(w, svcCtx, req.Name, mode, "api")
	}
}

// run blocks until the automation finishes. Runs use the service context
// rather than the request's, so a closed browser tab does not abort them.
func run(w http.ResponseWriter, svcCtx *svc.ServiceContext, name string, mode pricing.Mode, trigger string) {
	script := svc.ScriptName(name)
	report, err := svcCtx.Runner.Run(svcCtx.RunContext(), name, mode, trigger)
	switch {
	case errors.Is(err, automation.ErrUnknownAutomation):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, automation.ErrAlreadyRunning):
		httputil.Conflict(w, err.Error())
	case err != nil:
		httputil.InternalError(w, fmt.Sprintf("%s script execution failed: %v", script, err))
	default:
		httputil.OkJSON(w, types.RunResponse{
			Message: script + " script executed successfully.",
			Run:     report,
		})
	}
}

// ListRunsHandler returns the run history, newest first.
func ListRunsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListRunsRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.Limit > maxRunsLimit {
			req.Limit = maxRunsLimit
		}

		runs, err := svcCtx.DB.ListRuns(r.Context(), req.Limit)
		if err != nil {
			logging.Errorf("Failed to list runs: %v", err)
			httputil.InternalError(w, "failed to list runs")
			return
		}
		httputil.OkJSON(w, types.ListRunsResponse{Runs: runs})
	}
}

// GetRunHandler returns one run with its per-unit results.
func GetRunHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svcCtx.DB.GetRun(r.Context(), httputil.PathVar(r, "id"))
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				httputil.NotFound(w, "run not found")
				return
			}
			logging.Errorf("Failed to get run: %v", err)
			httputil.InternalError(w, "failed to get run")
			return
		}
		httputil.OkJSON(w, types.GetRunResponse{Run: report})
	}
}

// StateHandler reports the last applied mode of each automation and whether
// one is running. The toggle page seeds its switches from it.
func StateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modes, err := svcCtx.DB.LastModes(r.Context())
		if err != nil {
			logging.Errorf("Failed to load last modes: %v", err)
			httputil.InternalError(w, "failed to load state")
			return
		}
		running := svcCtx.Runner.Running()

		resp := types.StateResponse{
			Automations: []types.AutomationState{},
			Schedules:   svcCtx.Scheduler.Entries(),
			DryRun:      svcCtx.Config().IsDryRun(),
		}
		for _, name := range svcCtx.Runner.Names() {
			st := types.AutomationState{
				Name:        name,
				Credentials: svcCtx.Credentials.Source(name),
			}
			if m, ok := modes[name]; ok {
				st.Mode = m.String()
			}
			if started, ok := running[name]; ok {
				st.Running = true
				st.RunningSince = started.StartedAt.UTC().Format(time.RFC3339)
			}
			resp.Automations = append(resp.Automations, st)
		}
		httputil.OkJSON(w, resp)
	}
}
