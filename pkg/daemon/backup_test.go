package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/events"
	"github.com/charlie0129/vetcalc/pkg/store"
)

func newBackupCatalog(t *testing.T, hub *events.EventHub) *catalog.Catalog {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cat := catalog.New(store.NewMemory(), catalog.Builtins(), logger, catalog.WithEventHub(hub))
	require.NoError(t, cat.Load(context.Background()))
	return cat
}

func TestNewBackupRejectsBadSettings(t *testing.T) {
	cat := newBackupCatalog(t, nil)

	_, err := NewBackup(cat, nil, "every day", t.TempDir())
	require.Error(t, err)

	_, err = NewBackup(cat, nil, "@daily", "")
	require.Error(t, err)
}

func TestBackupRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	cat := newBackupCatalog(t, nil)
	b, err := NewBackup(cat, nil, "@daily", dir)
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC) }

	// Nothing to back up yet.
	require.NoError(t, b.preCheck())
	require.NoError(t, b.run())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	calc, err := cat.Add(context.Background(), calculator.Draft{
		Name:      "Double",
		Variables: []calculator.DraftVariable{{Name: "x", Unit: "u"}},
		Formula:   "return x * 2",
		Group:     "Mine",
	})
	require.NoError(t, err)
	require.NoError(t, b.run())

	data, err := os.ReadFile(filepath.Join(dir, "vetcalc_calculators_2024-05-06.json"))
	require.NoError(t, err)
	got, err := calculator.DecodeImport(data)
	require.NoError(t, err)
	require.Equal(t, []calculator.Calculator{calc}, got)
}

func TestBackupStatusAndSkip(t *testing.T) {
	b, err := NewBackup(newBackupCatalog(t, nil), nil, "@every 1h", t.TempDir())
	require.NoError(t, err)

	st := b.Status()
	require.Equal(t, "@every 1h", st.Schedule)
	require.False(t, st.Running)

	require.NoError(t, b.Skip())
	require.True(t, b.Status().NextRun.After(st.NextRun))
}

func TestBackupFailurePublishesEvent(t *testing.T) {
	hub := events.NewEventHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	b, err := NewBackup(newBackupCatalog(t, hub), hub, "@daily", t.TempDir())
	require.NoError(t, err)

	b.onError(errors.New("task failed: disk full"))

	select {
	case ev := <-ch:
		require.Equal(t, events.BackupFailed, ev.Name)
		payload, err := events.DecodeAs[events.BackupEvent](ev)
		require.NoError(t, err)
		require.Equal(t, "task failed: disk full", payload.Message)
	case <-time.After(time.Second):
		t.Fatal("no backup.failed event")
	}
}
