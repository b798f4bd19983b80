// Package scheduler fires automation runs from cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/config"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Runner is the part of automation.Runner the scheduler needs.
type Runner interface {
	Run(ctx context.Context, name string, mode pricing.Mode, trigger string) (*automation.Report, error)
}

// Logger is satisfied by logging.Logger.
type Logger interface {
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Entry describes one scheduled toggle.
type Entry struct {
	Name       string       `json:"name"`
	Cron       string       `json:"cron"`
	Automation string       `json:"automation"`
	Mode       pricing.Mode `json:"mode"`
	Next       time.Time    `json:"next,omitempty"`
}

// Scheduler owns a cron instance and the entries loaded from config.
type Scheduler struct {
	runner Runner
	log    Logger
	cron   *cronlib.Cron

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]cronlib.EntryID
	specs   map[string]Entry
}

// New creates a stopped scheduler.
func New(runner Runner, log Logger) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		log:     log,
		ctx:     context.Background(),
		entries: make(map[string]cronlib.EntryID),
		specs:   make(map[string]Entry),
	}
	s.cron = cronlib.New(
		cronlib.WithParser(config.CronParser),
		cronlib.WithChain(cronlib.Recover(cronLogger{log})),
	)
	return s
}

// Apply replaces every entry with schedules. Nothing changes if any entry
// is invalid or two entries share a name.
func (s *Scheduler) Apply(schedules []config.ScheduleConfig) error {
	if err := config.ValidateSchedules(schedules); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
		delete(s.specs, name)
	}

	for i, sc := range schedules {
		entry := Entry{
			Name:       sc.EntryName(i),
			Cron:       sc.Cron,
			Automation: sc.Automation,
			Mode:       pricing.ModeFor(sc.Concert),
		}
		id, err := s.cron.AddFunc(sc.Cron, func() { s.fire(entry) })
		if err != nil {
			return fmt.Errorf("schedule %s: %w", entry.Name, err)
		}
		s.entries[entry.Name] = id
		s.specs[entry.Name] = entry
	}
	if len(schedules) > 0 {
		s.log.Infof("[scheduler] Loaded %d schedule(s)", len(schedules))
	}
	return nil
}

func (s *Scheduler) fire(e Entry) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.log.Infof("[scheduler] %s fired: %s -> %s", e.Name, e.Automation, e.Mode)
	if _, err := s.runner.Run(ctx, e.Automation, e.Mode, "schedule:"+e.Name); err != nil {
		s.log.Errorf("[scheduler] %s: %v", e.Name, err)
	}
}

// Start begins firing entries. Runs receive ctx, so cancelling it stops
// any in-flight scheduled run between units.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the cron loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries lists the loaded schedules with their next fire time, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.specs))
	for name, e := range s.specs {
		e.Next = s.cron.Entry(s.entries[name]).Next
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type cronLogger struct{ log Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorf("[scheduler] %s: %v %v", msg, err, keysAndValues)
}
