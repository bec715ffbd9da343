// Package catalog merges the built-in calculators with the custom set kept in
// a store, and serializes every change to that set.
package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
	"github.com/charlie0129/vetcalc/pkg/events"
	"github.com/charlie0129/vetcalc/pkg/store"
)

var (
	ErrNotFound         = errors.New("calculator not found")
	ErrBuiltinImmutable = errors.New("built-in calculators cannot be modified")
	ErrNothingToImport  = errors.New("nothing to import")
	ErrNothingToExport  = errors.New("no custom calculators to export")
)

// PersistError is returned next to a mutation that was applied in memory but
// could not be written to the store. The in-memory state stays
// authoritative, so callers should report it as a warning.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return "changes were not saved: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err only carries a failed store write.
func IsPersistError(err error) bool {
	var perr *PersistError
	return errors.As(err, &perr)
}

type Option func(*Catalog)

// WithEventHub publishes every change to hub.
func WithEventHub(hub *events.EventHub) Option {
	return func(c *Catalog) {
		c.hub = hub
	}
}

// WithStoreErrorHook calls fn whenever a store read or write fails.
func WithStoreErrorHook(fn func(op string, err error)) Option {
	return func(c *Catalog) {
		c.onStoreError = fn
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

type Catalog struct {
	mu       sync.Mutex
	store    store.Store
	builtins []calculator.Calculator
	custom   []calculator.Calculator
	selected string

	snap atomic.Pointer[Snapshot]

	hub          *events.EventHub
	onStoreError func(op string, err error)
	now          func() time.Time
	logger       logrus.FieldLogger
}

func New(st store.Store, builtins []calculator.Calculator, logger logrus.FieldLogger, opts ...Option) *Catalog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Catalog{
		store:    st,
		builtins: builtins,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap.Store(newSnapshot(c.builtins, nil, nil))
	return c
}

// Load reads the custom set once at startup. On failure the catalog keeps an
// empty custom set and changes live for this session only.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	calcs, err := c.store.GetAll(ctx)
	if err != nil {
		c.storeFailed("read", err)
		c.logger.WithError(err).Warn("failed to load custom calculators, starting with an empty set")
		c.custom = nil
		c.rebuild()
		return err
	}
	c.custom = calcs
	c.rebuild()
	c.logger.WithField("count", len(calcs)).Info("loaded custom calculators")
	return nil
}

// Reload re-reads the custom set from the store. The current state is kept
// if the read fails.
func (c *Catalog) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	calcs, err := c.store.GetAll(ctx)
	if err != nil {
		c.storeFailed("read", err)
		return pkgerrors.Wrap(err, "failed to reload custom calculators")
	}
	c.custom = calcs
	c.rebuild()

	if c.selected != "" {
		if _, ok := c.Snapshot().Get(c.selected); !ok {
			c.selected = ""
			c.publish(events.SelectionChanged, events.SelectionEvent{Ts: c.now().Unix()})
		}
	}

	c.publish(events.CatalogReloaded, events.CatalogEvent{Count: len(calcs), Ts: c.now().Unix()})
	c.logger.WithField("count", len(calcs)).Info("reloaded custom calculators")
	return nil
}

// Snapshot returns the current immutable view.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// BuiltinGroups returns the sorted groups of the built-in calculators.
func (c *Catalog) BuiltinGroups() []string {
	return groupNames(c.builtins)
}

// Add authors a custom calculator from d, persists it and selects it.
func (c *Catalog) Add(ctx context.Context, d calculator.Draft) (calculator.Calculator, error) {
	calc, err := calculator.NewCustom(d, calculator.NewCustomID())
	if err != nil {
		return calculator.Calculator{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.custom = append(c.custom, calc)
	c.selected = calc.ID
	c.rebuild()

	ts := c.now().Unix()
	c.publish(events.CalculatorAdded, events.CalculatorEvent{ID: calc.ID, Name: calc.Name, Group: calc.Group, Ts: ts})
	c.publish(events.SelectionChanged, events.SelectionEvent{ID: calc.ID, Ts: ts})

	c.logger.WithFields(logrus.Fields{
		"id":    calc.ID,
		"name":  calc.Name,
		"group": calc.Group,
	}).Info("added custom calculator")

	return calc.Clone(), c.persist(ctx, "add")
}

// Delete removes a custom calculator. Deleting the selected calculator
// clears the selection.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, calc := range c.custom {
		if calc.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		for _, b := range c.builtins {
			if b.ID == id {
				return ErrBuiltinImmutable
			}
		}
		return ErrNotFound
	}

	removed := c.custom[idx]
	custom := make([]calculator.Calculator, 0, len(c.custom)-1)
	custom = append(custom, c.custom[:idx]...)
	c.custom = append(custom, c.custom[idx+1:]...)
	c.rebuild()

	ts := c.now().Unix()
	c.publish(events.CalculatorDeleted, events.CalculatorEvent{ID: removed.ID, Name: removed.Name, Group: removed.Group, Ts: ts})
	if c.selected == id {
		c.selected = ""
		c.publish(events.SelectionChanged, events.SelectionEvent{Ts: ts})
	}

	c.logger.WithFields(logrus.Fields{
		"id":   removed.ID,
		"name": removed.Name,
	}).Info("deleted custom calculator")

	return c.persist(ctx, "delete")
}

// Import merges the custom records of an export file. Records whose id is
// already known, records that are not custom and repeated ids within the
// file are skipped. It returns the number of imported calculators.
func (c *Catalog) Import(ctx context.Context, data []byte) (int, error) {
	incoming, err := calculator.DecodeImport(data)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.Snapshot()
	seen := make(map[string]struct{}, len(incoming))
	var fresh []calculator.Calculator
	for _, calc := range incoming {
		if calc.Type != calculator.TypeCustom {
			continue
		}
		if _, ok := snap.Get(calc.ID); ok {
			continue
		}
		if _, ok := seen[calc.ID]; ok {
			continue
		}
		seen[calc.ID] = struct{}{}
		fresh = append(fresh, calc)
	}
	if len(fresh) == 0 {
		return 0, ErrNothingToImport
	}

	custom := make([]calculator.Calculator, 0, len(c.custom)+len(fresh))
	custom = append(custom, c.custom...)
	c.custom = append(custom, fresh...)
	c.rebuild()

	c.publish(events.CatalogImported, events.CatalogEvent{Count: len(fresh), Ts: c.now().Unix()})
	c.logger.WithFields(logrus.Fields{
		"imported": len(fresh),
		"skipped":  len(incoming) - len(fresh),
	}).Info("imported custom calculators")

	return len(fresh), c.persist(ctx, "import")
}

// Export renders the custom set as an export file.
func (c *Catalog) Export() ([]byte, error) {
	custom := c.Snapshot().Custom()
	if len(custom) == 0 {
		return nil, ErrNothingToExport
	}
	return calculator.EncodeExport(custom)
}

// Select makes id the active calculator.
func (c *Catalog) Select(id string) (calculator.Calculator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	calc, ok := c.Snapshot().Get(id)
	if !ok {
		return calculator.Calculator{}, ErrNotFound
	}
	if c.selected != id {
		c.selected = id
		c.publish(events.SelectionChanged, events.SelectionEvent{ID: id, Ts: c.now().Unix()})
	}
	return calc, nil
}

// Selected returns the active calculator, if any.
func (c *Catalog) Selected() (calculator.Calculator, bool) {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()

	if id == "" {
		return calculator.Calculator{}, false
	}
	return c.Snapshot().Get(id)
}

func (c *Catalog) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == "" {
		return
	}
	c.selected = ""
	c.publish(events.SelectionChanged, events.SelectionEvent{Ts: c.now().Unix()})
}

// rebuild must be called with mu held.
func (c *Catalog) rebuild() {
	c.snap.Store(newSnapshot(c.builtins, c.custom, c.snap.Load()))
}

// persist writes the full custom set. Must be called with mu held. The
// write is not cut short when the caller's context is cancelled, since the
// in-memory change has already been applied.
func (c *Catalog) persist(ctx context.Context, op string) error {
	err := c.store.ReplaceAll(context.WithoutCancel(ctx), c.custom)
	if err == nil {
		return nil
	}
	c.storeFailed("write", err)
	c.logger.WithError(err).WithField("op", op).Warn("failed to save custom calculators, changes are kept for this session only")
	return &PersistError{Op: op, Err: err}
}

func (c *Catalog) storeFailed(op string, err error) {
	if c.onStoreError != nil {
		c.onStoreError(op, err)
	}
}

func (c *Catalog) publish(name string, payload any) {
	if c.hub != nil {
		c.hub.Publish(name, payload)
	}
}
