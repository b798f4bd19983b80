// Package browser drives a Chromium browser for the portal automations.
// Two backends are available: chromedp (Chrome DevTools Protocol) and
// playwright-go. Callers only see the Driver and Page interfaces.
package browser

import "time"

// Driver backends
const (
	// DriverChromedp talks CDP directly to a locally installed Chrome.
	DriverChromedp = "chromedp"

	// DriverPlaywright launches Chromium through playwright-go.
	DriverPlaywright = "playwright"
)

const (
	// DefaultTimeout bounds a single page action when the caller gives none.
	DefaultTimeout = 30 * time.Second

	// pollInterval is how often WaitFunction re-evaluates its predicate.
	pollInterval = 100 * time.Millisecond
)
