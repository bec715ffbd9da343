package store

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

var _ Store = &Badger{}

var badgerPrefix = []byte("calc/")

// badgerRecord is the value stored under calc/<id>. Keys iterate in id
// order, so the insertion position is kept alongside.
type badgerRecord struct {
	Position   int                   `json:"position"`
	Calculator calculator.Calculator `json:"calculator"`
}

// Badger stores one key per calculator in a BadgerDB directory.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, wrapErr(BackendBadger, "open", pkgerrors.Wrapf(err, "failed to create database directory %s", dir))
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logrus.WithField("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, wrapErr(BackendBadger, "open", pkgerrors.Wrapf(err, "failed to open badger database %s", dir))
	}
	return &Badger{db: db}, nil
}

// badgerLogger demotes badger's chatty info logs to debug.
type badgerLogger struct {
	*logrus.Entry
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.Entry.Debugf(format, args...)
}

func badgerKey(id string) []byte {
	return append(append([]byte(nil), badgerPrefix...), id...)
}

func (b *Badger) GetAll(_ context.Context) ([]calculator.Calculator, error) {
	var records []badgerRecord

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec badgerRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return pkgerrors.Wrapf(err, "failed to unmarshal record %s", item.Key())
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(BackendBadger, "read", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
	calcs := make([]calculator.Calculator, len(records))
	for i, rec := range records {
		calcs[i] = rec.Calculator
	}
	return calcs, nil
}

func (b *Badger) ReplaceAll(_ context.Context, calcs []calculator.Calculator) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return pkgerrors.Wrapf(err, "failed to delete %s", k)
			}
		}

		for i, c := range calcs {
			val, err := json.Marshal(badgerRecord{Position: i, Calculator: c})
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to marshal %s", c.ID)
			}
			if err := txn.Set(badgerKey(c.ID), val); err != nil {
				return pkgerrors.Wrapf(err, "failed to set %s", c.ID)
			}
		}
		return nil
	})
	return wrapErr(BackendBadger, "replace", err)
}

func (b *Badger) Close() error {
	return wrapErr(BackendBadger, "close", b.db.Close())
}
