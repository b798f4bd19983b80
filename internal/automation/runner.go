package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabrown76/Aramark-Scripts/internal/events"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Automation moves one portal to a pricing mode.
type Automation interface {
	Run(ctx context.Context, mode pricing.Mode) (*Report, error)
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, r *Report) error
}

// RunStarted is published on events.TopicRunStarted.
type RunStarted struct {
	RunID      string       `json:"runId"`
	Automation string       `json:"automation"`
	Mode       pricing.Mode `json:"mode"`
	Trigger    string       `json:"trigger"`
	StartedAt  time.Time    `json:"startedAt"`
}

// Runner owns the registered automations and allows one run per automation
// at a time. Different automations may run concurrently.
type Runner struct {
	store RunStore
	bus   *events.Subject
	log   Logger

	mu          sync.Mutex
	automations map[string]Automation
	running     map[string]RunStarted
}

// NewRunner creates a runner. store and bus may be nil.
func NewRunner(store RunStore, bus *events.Subject, log Logger) *Runner {
	return &Runner{
		store:       store,
		bus:         bus,
		log:         log,
		automations: make(map[string]Automation),
		running:     make(map[string]RunStarted),
	}
}

// Register adds or replaces the automation under name.
func (r *Runner) Register(name string, a Automation) {
	r.mu.Lock()
	r.automations[name] = a
	r.mu.Unlock()
}

// Names returns the registered automation names, sorted.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.automations))
	for name := range r.automations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Running returns the runs currently in flight keyed by automation.
func (r *Runner) Running() map[string]RunStarted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]RunStarted, len(r.running))
	for k, v := range r.running {
		out[k] = v
	}
	return out
}

// Run executes the named automation. The returned report is non-nil
// whenever the automation was started, even if err is set.
func (r *Runner) Run(ctx context.Context, name string, mode pricing.Mode, trigger string) (*Report, error) {
	r.mu.Lock()
	a, ok := r.automations[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownAutomation, name)
	}
	if _, busy := r.running[name]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	started := RunStarted{
		RunID:      uuid.NewString(),
		Automation: name,
		Mode:       mode,
		Trigger:    trigger,
		StartedAt:  time.Now(),
	}
	r.running[name] = started
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
	}()

	r.log.Infof("Starting %s with setToConcert: %t (trigger %s)", name, mode == pricing.Surge, trigger)
	r.emit(events.TopicRunStarted, started)

	report, err := a.Run(ctx, mode)
	if report == nil {
		report = newReport(name, mode, false)
	}
	report.RunID = started.RunID
	report.Automation = name
	report.Trigger = trigger
	report.StartedAt = started.StartedAt
	report.FinishedAt = time.Now()
	if err != nil {
		report.Error = err.Error()
		r.log.Errorf("Error executing %s: %v", name, err)
	} else {
		r.log.Infof("%s", report.Summary())
	}

	if r.store != nil {
		// A cancelled run is still recorded.
		if serr := r.store.SaveRun(context.WithoutCancel(ctx), report); serr != nil {
			r.log.Errorf("Failed to record run %s: %v", report.RunID, serr)
		}
	}
	r.emit(events.TopicRunFinished, report)
	return report, err
}

func (r *Runner) emit(topic string, v any) {
	if r.bus == nil {
		return
	}
	if err := events.Emit(r.bus, topic, v); err != nil {
		r.log.Warnf("publish %s: %v", topic, err)
	}
}
