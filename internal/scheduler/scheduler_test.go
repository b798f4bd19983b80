package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/config"
	"github.com/tabrown76/Aramark-Scripts/internal/logging"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

type call struct {
	name    string
	mode    pricing.Mode
	trigger string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeRunner) Run(ctx context.Context, name string, mode pricing.Mode, trigger string) (*automation.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name, mode, trigger})
	f.mu.Unlock()
	return &automation.Report{Automation: name, Mode: mode}, nil
}

func (f *fakeRunner) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestApplyListsEntries(t *testing.T) {
	s := New(&fakeRunner{}, logging.Discard())
	err := s.Apply([]config.ScheduleConfig{
		{Name: "friday-surge", Cron: "0 17 * * 5", Automation: config.AutomationMenus, Concert: true},
		{Cron: "0 0 1 * * 6", Automation: config.AutomationLevels},
	})
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "friday-surge", entries[0].Name)
	assert.Equal(t, pricing.Surge, entries[0].Mode)
	assert.Equal(t, "levels-1", entries[1].Name)
	assert.Equal(t, pricing.Normal, entries[1].Mode)
}

func TestApplyRejectsBadExpressionAndKeepsOld(t *testing.T) {
	s := New(&fakeRunner{}, logging.Discard())
	require.NoError(t, s.Apply([]config.ScheduleConfig{
		{Name: "keep", Cron: "@daily", Automation: config.AutomationMenus},
	}))

	err := s.Apply([]config.ScheduleConfig{
		{Name: "bad", Cron: "not a cron", Automation: config.AutomationMenus},
	})
	require.Error(t, err)
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, "keep", s.Entries()[0].Name)
}

func TestApplyRejectsDuplicateNames(t *testing.T) {
	tests := map[string][]config.ScheduleConfig{
		"explicit": {
			{Name: "friday", Cron: "@daily", Automation: config.AutomationMenus},
			{Name: "friday", Cron: "@hourly", Automation: config.AutomationLevels},
		},
		"generated": {
			{Name: "menus-1", Cron: "@daily", Automation: config.AutomationMenus},
			{Cron: "@hourly", Automation: config.AutomationMenus},
		},
	}
	for name, schedules := range tests {
		t.Run(name, func(t *testing.T) {
			s := New(&fakeRunner{}, logging.Discard())
			require.NoError(t, s.Apply([]config.ScheduleConfig{
				{Name: "keep", Cron: "@daily", Automation: config.AutomationMenus},
			}))

			require.Error(t, s.Apply(schedules))
			require.Len(t, s.Entries(), 1)
			assert.Equal(t, "keep", s.Entries()[0].Name)
			assert.Len(t, s.cron.Entries(), 1)
		})
	}
}

func TestApplyEmptyRemovesCronEntries(t *testing.T) {
	s := New(&fakeRunner{}, logging.Discard())
	require.NoError(t, s.Apply([]config.ScheduleConfig{
		{Cron: "@daily", Automation: config.AutomationMenus},
		{Cron: "@hourly", Automation: config.AutomationLevels},
	}))
	require.Len(t, s.cron.Entries(), 2)

	require.NoError(t, s.Apply(nil))
	assert.Empty(t, s.Entries())
	assert.Empty(t, s.cron.Entries())
}

func TestApplyReplacesEntries(t *testing.T) {
	s := New(&fakeRunner{}, logging.Discard())
	require.NoError(t, s.Apply([]config.ScheduleConfig{{Name: "a", Cron: "@hourly", Automation: "menus"}}))
	require.NoError(t, s.Apply([]config.ScheduleConfig{{Name: "b", Cron: "@hourly", Automation: "levels"}}))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name)
}

func TestScheduledRunFires(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, logging.Discard())
	require.NoError(t, s.Apply([]config.ScheduleConfig{
		{Name: "tick", Cron: "@every 1s", Automation: config.AutomationMenus, Concert: true},
	}))

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return len(runner.snapshot()) > 0 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, call{"menus", pricing.Surge, "schedule:tick"}, runner.snapshot()[0])
	assert.False(t, s.Entries()[0].Next.IsZero())
}
