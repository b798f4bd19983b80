package handler

import (
	"net/http"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/httputil"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/svc"
	"github.com/tabrown76/Aramark-Scripts/internal/types"
)

// HealthCheckHandler reports liveness. A broken run history is reported as
// degraded with 503; toggles can still run but nothing is recorded.
func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := types.HealthResponse{
			Status:    "healthy",
			Version:   svcCtx.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Running:   len(svcCtx.Runner.Running()),
		}
		if err := svcCtx.DB.DB().PingContext(r.Context()); err != nil {
			logging.Warnf("Health check: database unavailable: %v", err)
			resp.Status = "degraded"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.OkJSON(w, resp)
	}
}
