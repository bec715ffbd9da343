package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/events"
	"github.com/charlie0129/vetcalc/pkg/store"
	"github.com/charlie0129/vetcalc/pkg/version"
)

type testServer struct {
	srv   *Server
	store *store.Memory
	cat   *catalog.Catalog
	hub   *events.EventHub
	h     http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	st := store.NewMemory()
	hub := events.NewEventHub()
	cat := catalog.New(st, catalog.Builtins(), logger, catalog.WithEventHub(hub))
	require.NoError(t, cat.Load(context.Background()))

	srv := NewServer(cat, hub, nil, true)
	return &testServer{srv: srv, store: st, cat: cat, hub: hub, h: srv.setupRoutes()}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const doseDraftJSON = `{
  "name": "Dose",
  "description": "Dose by weight",
  "variables": [{"name": "Weight", "unit": "kg"}, {"name": "Dose", "unit": "mg/kg"}],
  "formula": "return weight * dose",
  "resultUnit": "mg",
  "group": "Mine"
}`

func TestGetVersion(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, version.Version, decode[string](t, w))
}

func TestListCalculators(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.cat.Add(context.Background(), calculator.Draft{
		Name:      "Double",
		Variables: []calculator.DraftVariable{{Name: "x", Unit: "u"}},
		Formula:   "return x * 2",
		Group:     "Mine",
	})
	require.NoError(t, err)

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 41},
		{"?type=builtin", http.StatusOK, 40},
		{"?type=custom", http.StatusOK, 1},
		{"?group=converters", http.StatusOK, 10},
		{"?q=double", http.StatusOK, 1},
		{"?q=kilograms&group=Converters", http.StatusOK, 4},
		{"?type=other", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/calculators"+tt.query, "")
			require.Equal(t, tt.code, w.Code)
			if tt.count >= 0 {
				require.Len(t, decode[[]calculator.Summary](t, w), tt.count)
			}
		})
	}

	// Listed group by group, groups sorted.
	list := decode[[]calculator.Summary](t, ts.do(t, http.MethodGet, "/calculators", ""))
	require.True(t, sort.SliceIsSorted(list, func(i, j int) bool { return list[i].Group < list[j].Group }))
}

func TestGetCalculator(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/calculators/builtin-rer", "")
	require.Equal(t, http.StatusOK, w.Code)
	calc := decode[calculator.Calculator](t, w)
	require.Equal(t, calculator.TypeBuiltin, calc.Type)
	require.Equal(t, "return 70 * (weight ** 0.75)", calc.Formula)

	w = ts.do(t, http.MethodGet, "/calculators/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, decode[string](t, w), "nope")
}

func TestAddAndDeleteCalculator(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/calculators", doseDraftJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	calc := decode[calculator.Calculator](t, w)
	require.True(t, strings.HasPrefix(calc.ID, "custom-"))
	require.Equal(t, []string{"weight", "dose"}, calc.Keys())
	require.Empty(t, w.Header().Get("Warning"))

	stored, err := ts.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	w = ts.do(t, http.MethodDelete, "/calculators/"+calc.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, ts.cat.Snapshot().Custom())

	w = ts.do(t, http.MethodDelete, "/calculators/"+calc.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/calculators/builtin-rer", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddCalculatorRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"bad json", "{", ""},
		{"no formula", `{"name": "x", "group": "g", "variables": []}`, "formula is required"},
		{"no return", `{"name": "x", "group": "g", "variables": [], "formula": "const a = 1"}`, "invalid formula"},
		{"syntax error", `{"name": "x", "group": "g", "variables": [], "formula": "return (1"}`, "invalid formula"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(t, http.MethodPost, "/calculators", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Contains(t, w.Body.String(), tt.msg)
			require.Empty(t, ts.cat.Snapshot().Custom())
		})
	}
}

func TestAddCalculatorStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.store.FailWrites = errors.New("disk full")

	w := ts.do(t, http.MethodPost, "/calculators", doseDraftJSON)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Header().Get("Warning"), "disk full")
	require.Len(t, ts.cat.Snapshot().Custom(), 1)
}

func TestEvaluate(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		id      string
		body    string
		code    int
		kind    calculator.ResultKind
		display string
	}{
		{"number", "builtin-kg-to-lbs", `{"inputs": {"kg": "10"}}`, http.StatusOK, calculator.ResultNumber, "22.0462"},
		{"small number", "builtin-g-to-kg", `{"inputs": {"g": "4.512"}}`, http.StatusOK, calculator.ResultNumber, "4.5120e-3"},
		{"text", "builtin-potassium-repo", `{"inputs": {"serum_k": "2.8", "fluid_vol": "500"}}`, http.StatusOK, calculator.ResultText, "Add 15.0 mEq of KCl (30 mEq/L)"},
		{"bad input", "builtin-kg-to-lbs", `{"inputs": {"kg": "ten"}}`, http.StatusOK, calculator.ResultError, "Error: invalid input for Weight in kilograms"},
		{"invalid number", "builtin-transfusion-drip-rate", `{"inputs": {"infusionRate": "0", "dripFactor": "20"}}`, http.StatusOK, calculator.ResultError, "Error: the calculation produced an invalid number."},
		{"missing inputs", "builtin-kg-to-lbs", `{}`, http.StatusBadRequest, "", ""},
		{"unknown", "nope", `{"inputs": {}}`, http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/calculators/"+tt.id+"/evaluate", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			r := decode[calculator.Result](t, w)
			require.Equal(t, tt.kind, r.Kind)
			require.Equal(t, tt.display, r.Display)
		})
	}
}

func TestGetGroups(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/calculators", doseDraftJSON)
	require.Equal(t, http.StatusCreated, w.Code)

	all := decode[[]string](t, ts.do(t, http.MethodGet, "/groups", ""))
	require.Len(t, all, 9)
	require.Contains(t, all, "Mine")

	builtin := decode[[]string](t, ts.do(t, http.MethodGet, "/groups?builtin=1", ""))
	require.Len(t, builtin, 8)
	require.NotContains(t, builtin, "Mine")
}

func TestImportExport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/calculators", doseDraftJSON)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "vetcalc_calculators_")
	exported := w.Body.String()
	require.True(t, strings.HasPrefix(exported, "[\n  {"))

	other := newTestServer(t)
	w = other.do(t, http.MethodPost, "/import", exported)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, decode[importResponse](t, w).Imported)

	w = other.do(t, http.MethodPost, "/import", exported)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "nothing to import", decode[string](t, w))

	w = other.do(t, http.MethodPost, "/import", `[{"id": "x"}]`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Every imported id must be reachable as /calculators/:id.
	slashed := strings.Replace(exported, `"id": "custom-`, `"id": "mine/custom-`, 1)
	w = other.do(t, http.MethodPost, "/import", slashed)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode[string](t, w), "slash")
	require.Len(t, other.cat.Snapshot().Custom(), 1)
}

func TestSelection(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/selection", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/selection", `{"id": "nope"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/selection", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/selection", `{"id": "builtin-bsa"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/selection", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "builtin-bsa", decode[calculator.Calculator](t, w).ID)

	w = ts.do(t, http.MethodDelete, "/selection", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/selection", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackupDisabled(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/backup", "").Code)
	require.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/backup/skip", "").Code)
	require.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/backup/postpone", `{"duration": "1h"}`).Code)
}

func TestBackupPostpone(t *testing.T) {
	ts := newTestServer(t)
	b, err := NewBackup(ts.cat, ts.hub, "@daily", t.TempDir())
	require.NoError(t, err)
	b.Start()
	defer b.Stop()
	h := NewServer(ts.cat, ts.hub, b, false).setupRoutes()

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/backup/postpone", strings.NewReader(body)))
		return w
	}

	before := b.Status().NextRun
	w := post(`{"duration": "90m"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[BackupStatus](t, w)
	require.Equal(t, before.Add(90*time.Minute).Truncate(time.Second), st.NextRun.Truncate(time.Second))

	require.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	require.Equal(t, http.StatusBadRequest, post(`{"duration": "soon"}`).Code)
	require.Equal(t, http.StatusConflict, post(`{"duration": "-1h"}`).Code)
	require.Equal(t, http.StatusConflict, post(`{"duration": "48h"}`).Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/calculators/builtin-kg-to-lbs/evaluate", `{"inputs": {"kg": "1"}}`)

	w := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `vetcalc_evaluations_total{outcome="number"}`)
	require.Contains(t, w.Body.String(), "vetcalc_evaluation_duration_seconds")

	off := NewServer(ts.cat, ts.hub, nil, false).setupRoutes()
	w = httptest.NewRecorder()
	off.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamEvents(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return ts.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(ts.do(t, http.MethodGet, "/metrics", "").Body.String(), "vetcalc_event_subscribers 1")
	}, time.Second, 10*time.Millisecond)
	calc, err := ts.cat.Add(context.Background(), calculator.Draft{
		Name:      "Double",
		Variables: []calculator.DraftVariable{{Name: "x", Unit: "u"}},
		Formula:   "return x * 2",
		Group:     "Mine",
	})
	require.NoError(t, err)

	name, data := readEvent(t, resp.Body)
	require.Equal(t, events.CalculatorAdded, name)
	payload, err := events.DecodeAs[events.CalculatorEvent](events.Event{Name: name, Data: []byte(data)})
	require.NoError(t, err)
	require.Equal(t, calc.ID, payload.ID)
}

func readEvent(t *testing.T, r io.Reader) (string, string) {
	t.Helper()
	var name, data string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
	require.NoError(t, sc.Err())
	t.Fatalf("stream ended before an event arrived")
	return "", ""
}
