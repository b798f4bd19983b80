package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "data", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func report(id, name string, mode pricing.Mode, started time.Time) *automation.Report {
	return &automation.Report{
		RunID:      id,
		Automation: name,
		Mode:       mode,
		Trigger:    "http",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Units:      []automation.UnitResult{},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)

	r := report("run-1", "menus", pricing.Surge, start)
	r.Units = []automation.UnitResult{
		{ID: "grill", Status: automation.StatusUpdated, Changes: []pricing.Change{{Name: "Hot Dog", From: "$6.00", To: "$7.00"}}},
		{ID: "bar", Status: automation.StatusConverged},
		{ID: "broken", Status: automation.StatusFailed, Error: "page did not load"},
	}
	require.NoError(t, store.SaveRun(ctx, r))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "menus", got.Automation)
	assert.Equal(t, pricing.Surge, got.Mode)
	assert.Equal(t, "http", got.Trigger)
	assert.True(t, got.StartedAt.Equal(start))
	require.Len(t, got.Units, 3)
	assert.Equal(t, r.Units[0], got.Units[0])
	assert.Empty(t, got.Units[1].Changes)
	assert.Equal(t, "page did not load", got.Units[2].Error)
}

func TestSaveRunReplacesSameID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := report("run-1", "menus", pricing.Surge, time.Now())
	r.Units = []automation.UnitResult{{ID: "a", Status: automation.StatusUpdated}}
	require.NoError(t, store.SaveRun(ctx, r))

	r.Units = nil
	r.Error = "cancelled"
	require.NoError(t, store.SaveRun(ctx, r))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got.Units)
	assert.Equal(t, "cancelled", got.Error)
}

func TestSaveRunRequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveRun(context.Background(), report("", "menus", pricing.Normal, time.Now())))
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)
	for i, id := range []string{"a", "b", "c"} {
		r := report(id, "levels", pricing.Normal, base.Add(time.Duration(i)*time.Minute))
		r.Units = []automation.UnitResult{{ID: "11", Status: automation.StatusUpdated}}
		require.NoError(t, store.SaveRun(ctx, r))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
	assert.Equal(t, 1, runs[0].Updated)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLastModesSkipsFailedAndDryRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.SaveRun(ctx, report("1", "menus", pricing.Surge, base)))
	failed := report("2", "menus", pricing.Normal, base.Add(time.Minute))
	failed.Error = "login failed"
	require.NoError(t, store.SaveRun(ctx, failed))
	dry := report("3", "menus", pricing.Normal, base.Add(2*time.Minute))
	dry.DryRun = true
	require.NoError(t, store.SaveRun(ctx, dry))
	require.NoError(t, store.SaveRun(ctx, report("4", "levels", pricing.Normal, base)))

	modes, err := store.LastModes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]pricing.Mode{"menus": pricing.Surge, "levels": pricing.Normal}, modes)
}

func TestStoreSatisfiesRunStore(t *testing.T) {
	var _ automation.RunStore = newTestStore(t)
}
