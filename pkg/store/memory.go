package store

import (
	"context"
	"sync"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

// Memory keeps the set in process memory. Nothing survives a restart.
type Memory struct {
	mu    sync.RWMutex
	calcs []calculator.Calculator

	// FailWrites makes ReplaceAll fail, for tests.
	FailWrites error
}

func NewMemory(calcs ...calculator.Calculator) *Memory {
	return &Memory{calcs: cloneAll(calcs)}
}

func (m *Memory) GetAll(_ context.Context) ([]calculator.Calculator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.calcs), nil
}

func (m *Memory) ReplaceAll(_ context.Context, calcs []calculator.Calculator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return wrapErr(BackendMemory, "replace", m.FailWrites)
	}
	m.calcs = cloneAll(calcs)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func cloneAll(calcs []calculator.Calculator) []calculator.Calculator {
	out := make([]calculator.Calculator, len(calcs))
	for i, c := range calcs {
		out[i] = c.Clone()
	}
	return out
}
