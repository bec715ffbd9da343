package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/store"
)

func TestStoreWatcherReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculators.json")
	logger, _ := test.NewNullLogger()
	cat := catalog.New(store.NewFile(path), catalog.Builtins(), logger)
	require.NoError(t, cat.Load(context.Background()))

	w, err := NewStoreWatcher(path, cat)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	reloads := make(chan error, 4)
	w.onReload = func(err error) { reloads <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A write by the catalog itself must not trigger a reload.
	_, err = cat.Add(ctx, calculator.Draft{
		Name:      "Double",
		Variables: []calculator.DraftVariable{{Name: "x", Unit: "u"}},
		Formula:   "return x * 2",
		Group:     "Mine",
	})
	require.NoError(t, err)
	select {
	case err := <-reloads:
		t.Fatalf("unexpected reload after own write: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	external := []calculator.Calculator{{
		ID:        "custom-external",
		Name:      "External",
		Variables: []calculator.Variable{{Name: "x", Key: "x", Unit: "u"}},
		Formula:   "return x",
		Type:      calculator.TypeCustom,
		Group:     "Theirs",
	}}
	data, err := store.Encode(external)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	custom := cat.Snapshot().Custom()
	require.Len(t, custom, 1)
	require.Equal(t, "custom-external", custom[0].ID)
}
