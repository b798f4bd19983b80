package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabrown76/Aramark-Scripts/internal/events"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

type stubAutomation struct {
	release chan struct{}
	started chan struct{}
	err     error
}

func (s *stubAutomation) Run(ctx context.Context, mode pricing.Mode) (*Report, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := newReport("ignored", mode, false)
	r.add(UnitResult{ID: "tab-1", Status: StatusUpdated})
	return r, s.err
}

type memoryStore struct {
	mu   sync.Mutex
	runs []*Report
}

func (m *memoryStore) SaveRun(ctx context.Context, r *Report) error {
	m.mu.Lock()
	m.runs = append(m.runs, r)
	m.mu.Unlock()
	return nil
}

func TestRunnerRecordsAndPublishes(t *testing.T) {
	bus := events.NewSubject()
	defer events.Complete(bus)
	store := &memoryStore{}

	finished := make(chan *Report, 1)
	events.Subscribe(bus, events.TopicRunFinished, func(_ context.Context, r *Report) error {
		finished <- r
		return nil
	}, false)

	r := NewRunner(store, bus, &recordingLogger{})
	r.Register("menus", &stubAutomation{})
	assert.Equal(t, []string{"menus"}, r.Names())

	report, err := r.Run(context.Background(), "menus", pricing.Surge, "api")
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "menus", report.Automation)
	assert.Equal(t, "api", report.Trigger)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, store.runs, 1)
	assert.Equal(t, report.RunID, store.runs[0].RunID)

	select {
	case got := <-finished:
		assert.Equal(t, report.RunID, got.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("run.finished not published")
	}
	assert.Empty(t, r.Running())
}

func TestRunnerUnknownAutomation(t *testing.T) {
	r := NewRunner(nil, nil, &recordingLogger{})
	_, err := r.Run(context.Background(), "reports", pricing.Surge, "api")
	assert.ErrorIs(t, err, ErrUnknownAutomation)
}

func TestRunnerRejectsOverlappingRuns(t *testing.T) {
	stub := &stubAutomation{release: make(chan struct{}), started: make(chan struct{})}
	r := NewRunner(nil, nil, &recordingLogger{})
	r.Register("levels", stub)
	r.Register("menus", &stubAutomation{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "levels", pricing.Surge, "ui")
		done <- err
	}()
	<-stub.started

	_, err := r.Run(context.Background(), "levels", pricing.Normal, "ui")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, r.Running(), "levels")

	_, err = r.Run(context.Background(), "menus", pricing.Normal, "ui")
	assert.NoError(t, err)

	close(stub.release)
	require.NoError(t, <-done)
	assert.Empty(t, r.Running())
}

func TestRunnerKeepsReportOnFailure(t *testing.T) {
	store := &memoryStore{}
	r := NewRunner(store, nil, &recordingLogger{})
	r.Register("menus", &stubAutomation{err: errors.New("login failed")})

	report, err := r.Run(context.Background(), "menus", pricing.Normal, "cron")
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "login failed", report.Error)
	require.Len(t, store.runs, 1)
}
