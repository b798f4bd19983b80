package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"
)

// Credentials are HTTP basic-auth credentials attached to a page.
type Credentials struct {
	Username string
	Password string
}

// PageOptions configures a new page.
type PageOptions struct {
	BasicAuth *Credentials
}

// Page is a single browser tab. Selectors are CSS selectors. A zero timeout
// means the driver default.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitReady waits until selector matches a node in the DOM.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// WaitVisible waits until selector matches a visible node.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Type sends text as keystrokes to the first match of selector.
	Type(ctx context.Context, selector, text string) error
	// Press sends a single named key ("Enter", "Tab", "Escape").
	Press(ctx context.Context, key string) error
	Click(ctx context.Context, selector string) error
	// Select chooses the option with value in a <select>.
	Select(ctx context.Context, selector, value string) error
	// Value reads the current value of an input or select.
	Value(ctx context.Context, selector string) (string, error)
	OuterHTML(ctx context.Context, selector string) (string, error)
	// Evaluate runs a JavaScript expression and decodes its result into out.
	// out may be nil.
	Evaluate(ctx context.Context, expr string, out any) error
	// WaitFunction polls a JavaScript expression until it is truthy.
	WaitFunction(ctx context.Context, expr string, timeout time.Duration) error
	Close() error
}

// Driver opens pages on one browser process.
type Driver interface {
	NewPage(ctx context.Context, opts PageOptions) (Page, error)
	Close() error
}

// Open starts a browser with the configured backend.
func Open(ctx context.Context, cfg Config) (Driver, error) {
	cfg, err := ResolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverPlaywright {
		return newPlaywrightDriver(cfg)
	}
	return newChromeDriver(ctx, cfg)
}

// Opener starts a Driver. Automations take one so tests can substitute fakes.
type Opener func(ctx context.Context) (Driver, error)

// NewOpener binds cfg to Open.
func NewOpener(cfg Config) Opener {
	return func(ctx context.Context) (Driver, error) {
		return Open(ctx, cfg)
	}
}

func basicAuthHeader(c Credentials) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// decodeInto copies an evaluated value into out through its JSON form.
func decodeInto(v any, out any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
