package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tabrown76/Aramark-Scripts/internal/config"
	"github.com/tabrown76/Aramark-Scripts/internal/defaults"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/server"
	"github.com/tabrown76/Aramark-Scripts/internal/svc"
)

// loadConfig layers the config file and the global flags over the
// embedded defaults, then validates the result.
func loadConfig(cmd *cobra.Command, args []string) error {
	configPath = cfgFile
	if configPath == "" {
		configPath = defaults.ConfigPath()
	}
	if configPath != "" {
		c, err := config.LoadFileOver(embeddedConfig, configPath)
		if err != nil {
			return err
		}
		*ServerConfig = c
	}
	applyFlags(ServerConfig)

	logging.SetFormat(ServerConfig.Log.Format)
	level := ServerConfig.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logging.SetLevel(level); err != nil {
		return err
	}
	return ServerConfig.Validate()
}

// applyFlags overrides config values with flags that were set.
func applyFlags(c *config.Config) {
	if headless {
		c.Browser.Headless = "true"
	}
	if driverArg != "" {
		c.Browser.Driver = driverArg
	}
	if dryRun {
		c.DryRun = "true"
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newServiceContext builds the services for a command and applies the version.
func newServiceContext() (*svc.ServiceContext, error) {
	svcCtx, err := svc.NewServiceContext(*ServerConfig)
	if err != nil {
		return nil, err
	}
	svcCtx.Version = Version
	return svcCtx, nil
}

// ServeCmd creates the serve command
func ServeCmd() *cobra.Command {
	var open bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the toggle page and trigger server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), open)
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "open the toggle page in the default browser")
	return cmd
}

func runServe(parent context.Context, open bool) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	svcCtx, err := newServiceContext()
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	if configPath != "" {
		w := config.NewWatcher(configPath)
		w.SetBase(embeddedConfig)
		w.OnChange(func(c config.Config) {
			applyFlags(&c)
			if err := svcCtx.ApplyConfig(c); err != nil {
				logging.Errorf("[config] Ignoring %s: %v", configPath, err)
			}
		})
		if err := w.Start(ctx); err != nil {
			logging.Warnf("[config] Not watching %s: %v", configPath, err)
		} else {
			defer w.Stop()
		}
	}

	if open {
		port := ServerConfig.Server.Port
		go openBrowser(fmt.Sprintf("http://localhost:%d", port))
	}

	return server.Run(ctx, *ServerConfig, server.ServerOptions{SvcCtx: svcCtx, Quiet: !verbose})
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		logging.Warnf("Could not open browser: %v", err)
	}
}
