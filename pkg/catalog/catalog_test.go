package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/events"
	"github.com/charlie0129/vetcalc/pkg/store"
)

func newTestCatalog(t *testing.T, st store.Store, opts ...Option) *Catalog {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(1700000000, 0) })}, opts...)
	c := New(st, Builtins(), logger, opts...)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func doseDraft(name string) calculator.Draft {
	return calculator.Draft{
		Name:        name,
		Description: "Dose by weight",
		Variables: []calculator.DraftVariable{
			{Name: "Weight", Unit: "kg"},
			{Name: "Dose", Unit: "mg/kg"},
		},
		Formula:    "return weight * dose",
		ResultUnit: "mg",
		Group:      "My group",
	}
}

func TestBuiltinsCompileAndValidate(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Builtins() {
		t.Run(c.ID, func(t *testing.T) {
			require.False(t, seen[c.ID], "duplicate id")
			seen[c.ID] = true

			require.Equal(t, calculator.TypeBuiltin, c.Type)
			require.NotEmpty(t, c.Name)
			require.NotEmpty(t, c.Group)

			keys := map[string]bool{}
			for _, k := range c.Keys() {
				require.False(t, keys[k], "duplicate key %s", k)
				keys[k] = true
			}

			fn, err := c.Compile()
			require.NoError(t, err)
			require.NoError(t, fn.Validate())
		})
	}
	require.Len(t, seen, 40)
}

func TestBuiltinsAreCopies(t *testing.T) {
	a := Builtins()
	a[0].Variables[0].Name = "changed"
	b := Builtins()
	require.NotEqual(t, "changed", b[0].Variables[0].Name)
}

func TestBuiltinResults(t *testing.T) {
	cases := []struct {
		id     string
		inputs map[string]string
		kind   calculator.ResultKind
		want   string
	}{
		{"builtin-kg-to-lbs", map[string]string{"kg": "10"}, calculator.ResultNumber, "22.0462"},
		{"builtin-c-to-f", map[string]string{"celsius": "38.5"}, calculator.ResultNumber, "101.3"},
		{"builtin-anion-gap", map[string]string{"Na": "140", "Cl": "105", "HCO3": "20"}, calculator.ResultNumber, "15"},
		{"builtin-insulin-cri", map[string]string{"weight": "10", "glucose": "300"}, calculator.ResultNumber, "1"},
		{"builtin-insulin-cri", map[string]string{"weight": "10", "glucose": "200"}, calculator.ResultNumber, "0.5"},
		{"builtin-potassium-repo", map[string]string{"serum_k": "3.0", "fluid_vol": "1000"}, calculator.ResultText, "Add 30.0 mEq of KCl (30 mEq/L)"},
		{"builtin-potassium-repo", map[string]string{"serum_k": "1.5", "fluid_vol": "500"}, calculator.ResultText, "Add 30.0 mEq of KCl (60 mEq/L)"},
		{"builtin-gma-protocol", map[string]string{"weight": "10"}, calculator.ResultText, "Gaba: 200.0mg, Melatonin: 5mg, Ace: 0.20mg"},
		{"builtin-plasma-transfusion", map[string]string{"weight": "4", "dose": "x"}, calculator.ResultError, "Error: invalid input for Target dose"},
	}
	snap := newTestCatalog(t, store.NewMemory()).Snapshot()

	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			calc, ok := snap.Get(tc.id)
			require.True(t, ok)
			r := calculator.Evaluate(calc, tc.inputs)
			require.Equal(t, tc.kind, r.Kind, r.Display)
			require.Equal(t, tc.want, r.Display)
		})
	}
}

func TestSnapshotViews(t *testing.T) {
	c := newTestCatalog(t, store.NewMemory())
	_, err := c.Add(context.Background(), doseDraft("Zeta dose"))
	require.NoError(t, err)

	snap := c.Snapshot()
	all := snap.All()
	require.Len(t, all, 41)
	require.Equal(t, "builtin-doggie-kitty-magic", all[0].ID)
	require.Equal(t, "Zeta dose", all[40].Name)
	require.Len(t, snap.Custom(), 1)
	require.Len(t, snap.Builtins(), 40)

	groups := snap.Groups()
	require.True(t, sort.StringsAreSorted(groups))
	require.Contains(t, groups, "My group")
	require.NotContains(t, c.BuiltinGroups(), "My group")
	require.Len(t, c.BuiltinGroups(), 8)

	byGroup := snap.ByGroup("")
	require.Len(t, byGroup, len(groups))
	total := 0
	for i, g := range byGroup {
		require.Equal(t, groups[i], g.Name)
		total += len(g.Calculators)
	}
	require.Equal(t, 41, total)

	zeta := snap.ByGroup("zeta")
	require.Len(t, zeta, 1)
	require.Equal(t, "My group", zeta[0].Name)
	require.Empty(t, snap.ByGroup("no such calculator"))

	require.Len(t, snap.Search(""), 41)
	require.Len(t, snap.Search("ZETA"), 1)
	require.NotEmpty(t, snap.Search("converters"))
	require.Empty(t, snap.Search("no such calculator"))
}

func TestSnapshotIsImmutable(t *testing.T) {
	c := newTestCatalog(t, store.NewMemory())
	before := c.Snapshot()

	_, err := c.Add(context.Background(), doseDraft("Dose"))
	require.NoError(t, err)

	require.Len(t, before.Custom(), 0)
	require.Len(t, c.Snapshot().Custom(), 1)
}

func TestAddPersistsAndSelects(t *testing.T) {
	st := store.NewMemory()
	hub := events.NewEventHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)
	c := newTestCatalog(t, st, WithEventHub(hub))

	calc, err := c.Add(context.Background(), doseDraft("Dose"))
	require.NoError(t, err)
	require.Equal(t, calculator.TypeCustom, calc.Type)
	require.Equal(t, []string{"weight", "dose"}, calc.Keys())

	stored, err := st.GetAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []calculator.Calculator{calc}, stored)

	sel, ok := c.Selected()
	require.True(t, ok)
	require.Equal(t, calc.ID, sel.ID)

	ev := <-ch
	require.Equal(t, events.CalculatorAdded, ev.Name)
	payload, err := events.DecodeAs[events.CalculatorEvent](ev)
	require.NoError(t, err)
	require.Equal(t, calc.ID, payload.ID)
	require.Equal(t, int64(1700000000), payload.Ts)
	require.Equal(t, events.SelectionChanged, (<-ch).Name)
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	st := store.NewMemory()
	c := newTestCatalog(t, st)

	d := doseDraft("Dose")
	d.Formula = "const x = weight * dose"
	_, err := c.Add(context.Background(), d)

	var verr *calculator.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "formula", verr.Field)
	require.Empty(t, c.Snapshot().Custom())

	stored, err := st.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestAddKeepsChangeWhenStoreFails(t *testing.T) {
	st := store.NewMemory()
	var failedOps []string
	c := newTestCatalog(t, st, WithStoreErrorHook(func(op string, _ error) {
		failedOps = append(failedOps, op)
	}))
	st.FailWrites = errors.New("disk full")

	calc, err := c.Add(context.Background(), doseDraft("Dose"))
	require.Error(t, err)
	require.True(t, IsPersistError(err))
	require.NotEmpty(t, calc.ID)
	require.Len(t, c.Snapshot().Custom(), 1)
	require.Equal(t, []string{"write"}, failedOps)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := newTestCatalog(t, st)

	a, err := c.Add(ctx, doseDraft("A"))
	require.NoError(t, err)
	b, err := c.Add(ctx, doseDraft("B"))
	require.NoError(t, err)

	// b is selected after being added.
	require.NoError(t, c.Delete(ctx, b.ID))
	_, ok := c.Selected()
	require.False(t, ok)

	custom := c.Snapshot().Custom()
	require.Len(t, custom, 1)
	require.Equal(t, a.ID, custom[0].ID)

	stored, err := st.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.ErrorIs(t, c.Delete(ctx, b.ID), ErrNotFound)
	require.ErrorIs(t, c.Delete(ctx, "builtin-rer"), ErrBuiltinImmutable)
	require.Len(t, c.Snapshot().Builtins(), 40)
}

func TestDeleteOtherKeepsSelection(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, store.NewMemory())

	a, err := c.Add(ctx, doseDraft("A"))
	require.NoError(t, err)
	_, err = c.Select("builtin-rer")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, a.ID))
	sel, ok := c.Selected()
	require.True(t, ok)
	require.Equal(t, "builtin-rer", sel.ID)
}

func TestSelection(t *testing.T) {
	c := newTestCatalog(t, store.NewMemory())

	_, ok := c.Selected()
	require.False(t, ok)

	_, err := c.Select("nope")
	require.ErrorIs(t, err, ErrNotFound)

	calc, err := c.Select("builtin-bsa")
	require.NoError(t, err)
	require.Equal(t, "Body Surface Area (BSA)", calc.Name)

	c.ClearSelection()
	_, ok = c.Selected()
	require.False(t, ok)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestCatalog(t, store.NewMemory())

	_, err := src.Export()
	require.ErrorIs(t, err, ErrNothingToExport)

	for _, name := range []string{"A", "B", "C"} {
		_, err := src.Add(ctx, doseDraft(name))
		require.NoError(t, err)
	}
	data, err := src.Export()
	require.NoError(t, err)

	dst := newTestCatalog(t, store.NewMemory())
	n, err := dst.Import(ctx, data)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, src.Snapshot().Custom(), dst.Snapshot().Custom())

	n, err = dst.Import(ctx, data)
	require.ErrorIs(t, err, ErrNothingToImport)
	require.Equal(t, 0, n)
	require.Len(t, dst.Snapshot().Custom(), 3)
}

func TestImportSkips(t *testing.T) {
	record := func(id, typ string) string {
		return `{"id":"` + id + `","name":"N","description":"","variables":[],"formula":"return 1","resultUnit":"","type":"` + typ + `","group":"G"}`
	}
	cases := []struct {
		name    string
		data    string
		want    int
		wantErr error
	}{
		{"lone builtin record", "[" + record("builtin-x", "builtin") + "]", 0, ErrNothingToImport},
		{"builtin id reused", "[" + record("builtin-rer", "custom") + "]", 0, ErrNothingToImport},
		{"empty array", "[]", 0, ErrNothingToImport},
		{"duplicate ids keep first", "[" + record("custom-1", "custom") + "," + record("custom-1", "custom") + "]", 1, nil},
		{"mixed", "[" + record("custom-1", "custom") + "," + record("b", "builtin") + "," + record("custom-2", "custom") + "]", 2, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCatalog(t, store.NewMemory())
			n, err := c.Import(context.Background(), []byte(tc.data))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, n)
			require.Len(t, c.Snapshot().Custom(), tc.want)
		})
	}
}

func TestImportRejectsBadShape(t *testing.T) {
	c := newTestCatalog(t, store.NewMemory())
	good := `{"id":"custom-1","name":"N","description":"","variables":[],"formula":"return 1","resultUnit":"","type":"custom","group":"G"}`

	for _, data := range []string{
		"not json",
		`{"id":"custom-1"}`,
		"[" + good + `,{"id":"custom-2"}]`,
		strings.Replace("["+good+"]", "custom-1", "mine/dose", 1),
	} {
		_, err := c.Import(context.Background(), []byte(data))
		var ierr *calculator.ImportError
		require.True(t, errors.As(err, &ierr), data)
	}
	require.Empty(t, c.Snapshot().Custom())
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	logger, hook := test.NewNullLogger()
	st := store.NewFile(t.TempDir())

	c := New(st, Builtins(), logger)
	require.Error(t, c.Load(context.Background()))
	require.Empty(t, c.Snapshot().Custom())
	require.Len(t, c.Snapshot().All(), 40)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	hub := events.NewEventHub()
	c := newTestCatalog(t, st, WithEventHub(hub))

	a, err := c.Add(ctx, doseDraft("A"))
	require.NoError(t, err)

	// Someone else empties the store.
	require.NoError(t, st.ReplaceAll(ctx, nil))

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)
	require.NoError(t, c.Reload(ctx))

	require.Empty(t, c.Snapshot().Custom())
	_, ok := c.Snapshot().Get(a.ID)
	require.False(t, ok)
	_, ok = c.Selected()
	require.False(t, ok)

	require.Equal(t, events.SelectionChanged, (<-ch).Name)
	require.Equal(t, events.CatalogReloaded, (<-ch).Name)
}

func TestSnapshotReusesPrograms(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, store.NewMemory())

	before, ok := c.Snapshot().Program("builtin-kg-to-lbs")
	require.True(t, ok)
	_, ok = c.Snapshot().Program("nope")
	require.False(t, ok)

	a, err := c.Add(ctx, doseDraft("A"))
	require.NoError(t, err)
	progA, ok := c.Snapshot().Program(a.ID)
	require.True(t, ok)
	r := progA.Evaluate(map[string]string{"weight": "4", "dose": "2.5"})
	require.Equal(t, "10", r.Display)

	_, err = c.Add(ctx, doseDraft("B"))
	require.NoError(t, err)

	after, _ := c.Snapshot().Program("builtin-kg-to-lbs")
	require.Same(t, before, after)
	again, _ := c.Snapshot().Program(a.ID)
	require.Same(t, progA, again)
}

// cancelAwareStore fails writes made with a cancelled context.
type cancelAwareStore struct {
	*store.Memory
}

func (s cancelAwareStore) ReplaceAll(ctx context.Context, calcs []calculator.Calculator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Memory.ReplaceAll(ctx, calcs)
}

func TestPersistOutlivesCancelledRequest(t *testing.T) {
	st := cancelAwareStore{store.NewMemory()}
	c := newTestCatalog(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calc, err := c.Add(ctx, doseDraft("Dose"))
	require.NoError(t, err)

	stored, err := st.GetAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []calculator.Calculator{calc}, stored)
}
