package calculator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// requiredStrings are the fields every record of an import file must carry
// as JSON strings.
var requiredStrings = []string{"id", "name", "description", "formula", "resultUnit", "group"}

// DecodeImport parses an import file. The whole file is rejected with an
// ImportError unless it is a JSON array whose every element has the string
// fields of a calculator, an array of variables and a known type.
func DecodeImport(data []byte) ([]Calculator, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ImportError{Msg: "the file is not a JSON array of calculators", Err: err}
	}

	calcs := make([]Calculator, 0, len(raw))
	for i, item := range raw {
		if err := checkShape(item); err != nil {
			return nil, &ImportError{Msg: fmt.Sprintf("record %d is not a calculator", i), Err: err}
		}

		var c Calculator
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, &ImportError{Msg: fmt.Sprintf("record %d is not a calculator", i), Err: err}
		}
		calcs = append(calcs, c)
	}
	return calcs, nil
}

func checkShape(item json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return pkgerrors.Errorf("not an object")
	}

	for _, name := range requiredStrings {
		var s string
		v, ok := fields[name]
		if !ok {
			return pkgerrors.Errorf("missing %q", name)
		}
		if err := json.Unmarshal(v, &s); err != nil || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return pkgerrors.Errorf("%q must be a string", name)
		}
	}

	var id string
	_ = json.Unmarshal(fields["id"], &id)
	if err := CheckID(id); err != nil {
		return err
	}

	var vars []json.RawMessage
	v, ok := fields["variables"]
	if !ok {
		return pkgerrors.Errorf("missing %q", "variables")
	}
	if err := json.Unmarshal(v, &vars); err != nil || vars == nil {
		return pkgerrors.Errorf("%q must be an array", "variables")
	}

	var typ string
	if err := json.Unmarshal(fields["type"], &typ); err != nil ||
		(Type(typ) != TypeBuiltin && Type(typ) != TypeCustom) {
		return pkgerrors.Errorf("%q must be %q or %q", "type", TypeBuiltin, TypeCustom)
	}
	return nil
}

// CheckID rejects ids that cannot be addressed as a single URL path
// segment.
func CheckID(id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(`"id" must not be empty`)
	}
	if strings.ContainsAny(id, "/\\") {
		return pkgerrors.Errorf(`"id" must not contain a slash: %q`, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return pkgerrors.Errorf(`"id" must not contain control characters: %q`, id)
		}
	}
	return nil
}

// EncodeExport serializes calcs as a pretty-printed JSON array.
func EncodeExport(calcs []Calculator) ([]byte, error) {
	if calcs == nil {
		calcs = []Calculator{}
	}
	return json.MarshalIndent(calcs, "", "  ")
}

// ExportFilename is the suggested name of an export file written at t.
func ExportFilename(t time.Time) string {
	return "vetcalc_calculators_" + t.UTC().Format(time.DateOnly) + ".json"
}
