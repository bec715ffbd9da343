package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

func TestParseVars(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		wantKeys []string
		wantErr  bool
	}{
		{name: "ordered", in: []string{"b=1", "a=2,5"}, wantKeys: []string{"b", "a"}},
		{name: "empty value", in: []string{"a="}, wantKeys: []string{"a"}},
		{name: "missing equals", in: []string{"a"}, wantErr: true},
		{name: "empty key", in: []string{"=1"}, wantErr: true},
		{name: "duplicate", in: []string{"a=1", "a=2"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, values, err := parseVars(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKeys, keys)
			require.Len(t, values, len(tt.wantKeys))
		})
	}
}

func TestParseDraftVars(t *testing.T) {
	vars, err := parseDraftVars([]string{"Body weight:kg", "Rate:ml/kg/h"})
	require.NoError(t, err)
	require.Equal(t, []calculator.DraftVariable{
		{Name: "Body weight", Unit: "kg"},
		{Name: "Rate", Unit: "ml/kg/h"},
	}, vars)

	_, err = parseDraftVars([]string{"no unit"})
	require.Error(t, err)
}

func TestReadDraft(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "draft.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`name: Shock dose
group: Emergency
resultUnit: ml
helpText: Give over 15 minutes.
variables:
  - name: Body weight
    unit: kg
formula: |
  return body_weight * 90
`), 0644))

	d, err := readDraft(nil, yamlPath)
	require.NoError(t, err)
	require.Equal(t, "Shock dose", d.Name)
	require.Equal(t, "ml", d.ResultUnit)
	require.Equal(t, "Give over 15 minutes.", d.HelpText)
	require.Len(t, d.Variables, 1)
	require.Equal(t, "return body_weight * 90\n", d.Formula)

	d, err = readDraft(strings.NewReader(`{"name":"x","group":"g","formula":"return 1"}`), "-")
	require.NoError(t, err)
	require.Equal(t, "x", d.Name)

	_, err = readDraft(nil, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestPrintOutput(t *testing.T) {
	v := []calculator.Summary{{ID: "a", Name: "A", Type: calculator.TypeCustom, Group: "G"}}

	var buf bytes.Buffer
	require.NoError(t, printOutput(&buf, "json", v, func() {}))
	require.Contains(t, buf.String(), `"id": "a"`)

	buf.Reset()
	require.NoError(t, printOutput(&buf, "yaml", v, func() {}))
	require.Contains(t, buf.String(), "- id: a")
	require.Contains(t, buf.String(), "type: custom")

	called := false
	require.NoError(t, printOutput(&buf, "table", v, func() { called = true }))
	require.True(t, called)

	require.Error(t, printOutput(&buf, "xml", v, func() {}))
}

func TestRunInteractive(t *testing.T) {
	color.NoColor = true

	calc := calculator.Calculator{
		ID:         "c",
		Name:       "Kg to lbs",
		Variables:  []calculator.Variable{{Name: "Weight", Key: "kg", Unit: "kg"}},
		Formula:    "return kg * 2.20462",
		ResultUnit: "lbs",
		Type:       calculator.TypeCustom,
		HelpText:   "Multiply by 2.20462.",
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	// Help, a bad value, then a good one.
	cmd.SetIn(strings.NewReader("?\nabc\n10\n"))

	require.NoError(t, runInteractive(cmd, calc, nil))
	require.Contains(t, out.String(), "Multiply by 2.20462.")
	require.Contains(t, out.String(), "Error:")
	require.Contains(t, out.String(), "22.0462 lbs")
}

func TestRunInteractivePrefill(t *testing.T) {
	color.NoColor = true

	calc := calculator.Calculator{
		ID:        "c",
		Name:      "Sum",
		Variables: []calculator.Variable{{Name: "A", Key: "a"}, {Name: "B", Key: "b"}},
		Formula:   "return a + b",
		Type:      calculator.TypeCustom,
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("2\n"))

	require.NoError(t, runInteractive(cmd, calc, map[string]string{"a": "1"}))
	require.Contains(t, out.String(), "3")
	require.NotContains(t, out.String(), "A ()")

	require.Error(t, runInteractive(cmd, calc, map[string]string{"zzz": "1"}))
}
