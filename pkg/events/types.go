package events

import "encoding/json"

// Event name constants
const (
	CalculatorAdded   = "calculator.added"
	CalculatorDeleted = "calculator.deleted"
	CatalogImported   = "catalog.imported"
	CatalogReloaded   = "catalog.reloaded"
	SelectionChanged  = "selection.changed"
	BackupFailed      = "backup.failed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// CalculatorEvent is the typed payload for calculator.added and
// calculator.deleted.
type CalculatorEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
	Ts    int64  `json:"ts"`
}

// CatalogEvent is the typed payload for catalog.imported and
// catalog.reloaded. Count is the number of imported calculators, or the size
// of the custom set after a reload.
type CatalogEvent struct {
	Count int   `json:"count"`
	Ts    int64 `json:"ts"`
}

// SelectionEvent is the typed payload for selection.changed. An empty ID
// means the selection was cleared.
type SelectionEvent struct {
	ID string `json:"id,omitempty"`
	Ts int64  `json:"ts"`
}

// BackupEvent is the typed payload for backup.failed.
type BackupEvent struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.CalculatorEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.ID, payload.Name)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
