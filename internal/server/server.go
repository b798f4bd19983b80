package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tabrown76/Aramark-Scripts/internal/config"
	"github.com/tabrown76/Aramark-Scripts/internal/handler"
	"github.com/tabrown76/Aramark-Scripts/internal/handler/toggle"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/middleware"
	"github.com/tabrown76/Aramark-Scripts/internal/svc"
	"github.com/tabrown76/Aramark-Scripts/internal/webui"
	"github.com/tabrown76/Aramark-Scripts/internal/websocket"
)

// ServerOptions holds optional dependencies for the server
type ServerOptions struct {
	SvcCtx *svc.ServiceContext // Pre-initialized service context
	Quiet  bool                // Suppress request logging
}

// Run starts the trigger server with the given configuration.
// It blocks until the context is cancelled or an error occurs.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	svcCtx := o.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}

	host := c.Server.Host
	if host == "" {
		host = "localhost"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(c.Server.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use - only one instance allowed per computer: %w", c.Server.Port, err)
	}

	svcCtx.Start(ctx)

	// ReadTimeout/WriteTimeout are omitted: runs hold the request open for
	// minutes and the log websocket is long-lived.
	httpServer := &http.Server{
		Handler:           NewRouter(svcCtx, o.Quiet),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logging.Infof("Server running on http://%s", addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	logging.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter mounts every route on a chi router.
func NewRouter(svcCtx *svc.ServiceContext, quiet bool) http.Handler {
	r := chi.NewRouter()

	if !quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.CORS())

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	// Toggle endpoints used by the page and by existing bookmarks/scripts.
	r.Post("/run-jpjm-script", toggle.RunScriptHandler(svcCtx, config.AutomationMenus))
	r.Post("/run-apl-script", toggle.RunScriptHandler(svcCtx, config.AutomationLevels))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/automations/{name}/run", toggle.RunAutomationHandler(svcCtx))
		r.Get("/runs", toggle.ListRunsHandler(svcCtx))
		r.Get("/runs/{id}", toggle.GetRunHandler(svcCtx))
		r.Get("/state", toggle.StateHandler(svcCtx))
	})

	r.Get("/ws/logs", websocket.LogsHandler(svcCtx))

	r.Handle("/*", webui.Handler())
	return r
}
