// Package store persists the custom calculator set.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

// Store is a persistent, ordered collection of custom calculators.
// ReplaceAll always receives the full set, so concurrent writers converge on
// the last write.
type Store interface {
	// GetAll returns every record in insertion order.
	GetAll(ctx context.Context) ([]calculator.Calculator, error)
	// ReplaceAll atomically replaces the stored set with calcs.
	ReplaceAll(ctx context.Context, calcs []calculator.Calculator) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Backends lists the accepted values of the storeBackend setting.
var Backends = []Backend{BackendFile, BackendBadger, BackendSQLite, BackendMemory}

// StoreError wraps a failed store operation.
type StoreError struct {
	Op      string
	Backend Backend
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapErr(backend Backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Backend: backend, Err: err}
}

// Open opens the backend named kind at path. path is a file for the file and
// sqlite backends, a directory for badger and ignored for memory.
func Open(kind string, path string) (Store, error) {
	switch Backend(strings.ToLower(kind)) {
	case BackendFile:
		return NewFile(path), nil
	case BackendBadger:
		return OpenBadger(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (want one of %v)", kind, Backends)
	}
}
