package browser

import (
	"fmt"
	"time"
)

// Config is the browser configuration.
type Config struct {
	// Driver is "chromedp" (default) or "playwright".
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// ExecutablePath overrides auto-detection of Chrome.
	ExecutablePath string `json:"executablePath,omitempty" yaml:"executablePath,omitempty"`

	// Headless runs browsers without UI.
	Headless bool `json:"headless,omitempty" yaml:"headless,omitempty"`

	// NoSandbox disables Chrome sandbox (needed in some containers).
	NoSandbox bool `json:"noSandbox,omitempty" yaml:"noSandbox,omitempty"`

	// UserDataDir keeps a persistent profile between runs. Empty means a
	// throwaway profile.
	UserDataDir string `json:"userDataDir,omitempty" yaml:"userDataDir,omitempty"`

	// Timeout is the default per-action timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ResolveConfig applies defaults and rejects unknown drivers.
func ResolveConfig(cfg Config) (Config, error) {
	switch cfg.Driver {
	case "":
		cfg.Driver = DriverChromedp
	case DriverChromedp, DriverPlaywright:
	default:
		return cfg, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}
