package calculator

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlie0129/vetcalc/pkg/formula"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Weight", "weight"},
		{"  Body Weight  ", "body_weight"},
		{"Peso (kg)", "peso_kg"},
		{"Dose\t\tper  kg", "dose_per_kg"},
		{"Concentração", "concentrao"},
		{"K+ (mEq/L)", "k_meql"},
		{"%$#", ""},
		{"already_snake_2", "already_snake_2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeriveKey(tt.name))
		})
	}
}

func TestAssignKeys(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{"distinct", []string{"Weight", "Dose"}, []string{"weight", "dose"}},
		{"collision", []string{"Dose", "dose", "DOSE"}, []string{"dose", "dose_2", "dose_3"}},
		{"suffix already taken", []string{"a_2", "a", "a"}, []string{"a_2", "a", "a_3"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AssignKeys(tt.names))
		})
	}
}

func validDraft() Draft {
	return Draft{
		Name:        "Weight conversion",
		Description: "kg to lb",
		Variables:   []DraftVariable{{Name: "Weight", Unit: "kg"}},
		Formula:     "return weight * 2.20462",
		ResultUnit:  "lb",
		Group:       "Converters",
	}
}

func TestNewCustom(t *testing.T) {
	c, err := NewCustom(validDraft(), "custom-1")
	require.NoError(t, err)
	require.Equal(t, "custom-1", c.ID)
	require.Equal(t, TypeCustom, c.Type)
	require.Equal(t, []Variable{{Name: "Weight", Key: "weight", Unit: "kg"}}, c.Variables)
	require.Equal(t, "Converters", c.Group)
}

func TestNewCustomRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *Draft)
		wantField string
		wantMsg   string
	}{
		{
			name:      "empty name",
			mutate:    func(d *Draft) { d.Name = "  " },
			wantField: "name",
			wantMsg:   "name is required",
		},
		{
			name:      "empty group",
			mutate:    func(d *Draft) { d.Group = "" },
			wantField: "group",
		},
		{
			name:      "empty formula",
			mutate:    func(d *Draft) { d.Formula = "\n\t" },
			wantField: "formula",
		},
		{
			name:      "variable without unit",
			mutate:    func(d *Draft) { d.Variables[0].Unit = "" },
			wantField: "variables[0].unit",
		},
		{
			name:      "variable without name",
			mutate:    func(d *Draft) { d.Variables = append(d.Variables, DraftVariable{Unit: "mg"}) },
			wantField: "variables[1].name",
		},
		{
			name:      "key with no usable characters",
			mutate:    func(d *Draft) { d.Variables[0].Name = "%%" },
			wantField: "variables[0].name",
		},
		{
			name:      "key starting with a digit",
			mutate:    func(d *Draft) { d.Variables[0].Name = "2nd dose" },
			wantField: "variables[0].name",
		},
		{
			name:      "syntax error",
			mutate:    func(d *Draft) { d.Formula = "return weight *" },
			wantField: "formula",
			wantMsg:   "invalid formula: ",
		},
		{
			name:      "no return",
			mutate:    func(d *Draft) { d.Formula = "const x = weight * 2;" },
			wantField: "formula",
			wantMsg:   "invalid formula: ",
		},
		{
			name:      "unknown name",
			mutate:    func(d *Draft) { d.Formula = "return weight * dose" },
			wantField: "formula",
			wantMsg:   "dose is not defined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			_, err := NewCustom(d, "custom-1")
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %T", err)
			require.Equal(t, tt.wantField, verr.Field)
			if tt.wantMsg != "" {
				require.Contains(t, verr.Msg, tt.wantMsg)
			}
		})
	}
}

func TestNewCustomNoReturnWrapsErrNoResult(t *testing.T) {
	d := validDraft()
	d.Formula = "const x = weight * 2;"
	_, err := NewCustom(d, "custom-1")
	require.ErrorIs(t, err, formula.ErrNoResult)
}

func TestNewCustomDuplicateNamesGetSuffixedKeys(t *testing.T) {
	d := validDraft()
	d.Variables = []DraftVariable{{Name: "Dose", Unit: "mg"}, {Name: "dose", Unit: "mg"}}
	d.Formula = "return dose + dose_2"
	c, err := NewCustom(d, "custom-1")
	require.NoError(t, err)
	require.Equal(t, []string{"dose", "dose_2"}, c.Keys())
}

func TestNewCustomID(t *testing.T) {
	a, b := NewCustomID(), NewCustomID()
	require.True(t, strings.HasPrefix(a, "custom-"))
	require.NotEqual(t, a, b)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10", 10, true},
		{" 2.5 ", 2.5, true},
		{"-3e2", -300, true},
		{".5", 0.5, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"NaN", 0, false},
		{"0x10", 0, false},
		{"1_000", 0, false},
		{"Infinity", math.Inf(1), true},
		{"-Infinity", math.Inf(-1), true},
		{"+Infinity", math.Inf(1), true},
		{"1e400", math.Inf(1), true},
		{"inf", 0, false},
		{"+Inf", 0, false},
		{"infinity", 0, false},
		{"INFINITY", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseInput(tt.in)
		require.Equal(t, tt.wantOK, ok, "ParseInput(%q)", tt.in)
		if ok {
			require.Equal(t, tt.want, got, "ParseInput(%q)", tt.in)
		}
	}
}

func calc(params []Variable, body string) Calculator {
	return Calculator{ID: "custom-t", Name: "T", Variables: params, Formula: body, ResultUnit: "u", Type: TypeCustom, Group: "G"}
}

func TestEvaluate(t *testing.T) {
	weight := []Variable{{Name: "Weight", Key: "weight", Unit: "kg"}}

	tests := []struct {
		name        string
		calc        Calculator
		inputs      map[string]string
		wantKind    ResultKind
		wantDisplay string
		wantErr     any
	}{
		{
			name:        "number",
			calc:        calc(weight, "return weight * 2.20462"),
			inputs:      map[string]string{"weight": "10"},
			wantKind:    ResultNumber,
			wantDisplay: "22.0462",
		},
		{
			name:        "small number",
			calc:        calc(weight, "return weight"),
			inputs:      map[string]string{"weight": "0.004512"},
			wantKind:    ResultNumber,
			wantDisplay: "4.5120e-3",
		},
		{
			name:        "trailing zeros trimmed",
			calc:        calc(weight, "return weight"),
			inputs:      map[string]string{"weight": "2.0"},
			wantKind:    ResultNumber,
			wantDisplay: "2",
		},
		{
			name:        "text",
			calc:        calc(weight, "return 'Dose: ' + weight.toFixed(1) + ' ml'"),
			inputs:      map[string]string{"weight": "3"},
			wantKind:    ResultText,
			wantDisplay: "Dose: 3.0 ml",
		},
		{
			name:        "division by zero",
			calc:        calc(weight, "return weight / 0"),
			inputs:      map[string]string{"weight": "5"},
			wantKind:    ResultError,
			wantDisplay: "Error: the calculation produced an invalid number.",
			wantErr:     new(*RuntimeFormulaError),
		},
		{
			name:        "invalid input",
			calc:        calc(weight, "return weight"),
			inputs:      map[string]string{"weight": "heavy"},
			wantKind:    ResultError,
			wantDisplay: "Error: invalid input for Weight",
			wantErr:     new(*InputError),
		},
		{
			name:        "missing input",
			calc:        calc(weight, "return weight"),
			inputs:      map[string]string{},
			wantKind:    ResultError,
			wantDisplay: "Error: invalid input for Weight",
			wantErr:     new(*InputError),
		},
		{
			name:        "input error wins over a broken formula",
			calc:        calc(weight, "return ((("),
			inputs:      map[string]string{"weight": ""},
			wantKind:    ResultError,
			wantDisplay: "Error: invalid input for Weight",
			wantErr:     new(*InputError),
		},
		{
			name:        "runtime error",
			calc:        calc(weight, "return weight * missing"),
			inputs:      map[string]string{"weight": "1"},
			wantKind:    ResultError,
			wantDisplay: "Error in formula: missing is not defined",
			wantErr:     new(*RuntimeFormulaError),
		},
		{
			name:     "syntax error",
			calc:     calc(weight, "return weight *"),
			inputs:   map[string]string{"weight": "1"},
			wantKind: ResultError,
			wantErr:  new(*RuntimeFormulaError),
		},
		{
			name:        "no result",
			calc:        calc(weight, "const x = weight;"),
			inputs:      map[string]string{"weight": "1"},
			wantKind:    ResultError,
			wantDisplay: "Error: the result of the calculation is neither a number nor valid text.",
		},
		{
			name:        "error marker",
			calc:        calc(weight, "if (weight > 100) { return 'Error: too heavy' } return weight"),
			inputs:      map[string]string{"weight": "150"},
			wantKind:    ResultError,
			wantDisplay: "Error: too heavy",
		},
		{
			name:        "legacy error marker",
			calc:        calc(weight, "return '  ERRO: entrada'"),
			inputs:      map[string]string{"weight": "1"},
			wantKind:    ResultError,
			wantDisplay: "  ERRO: entrada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(tt.calc, tt.inputs)
			require.Equal(t, tt.wantKind, r.Kind, "display %q", r.Display)
			if tt.wantDisplay != "" {
				require.Equal(t, tt.wantDisplay, r.Display)
			}
			if tt.wantErr != nil {
				require.ErrorAs(t, r.Err, tt.wantErr)
			}
			if r.Kind == ResultNumber {
				require.Equal(t, "u", r.Unit)
			}
		})
	}
}

func TestEvaluateBindsPositionally(t *testing.T) {
	c := calc([]Variable{
		{Name: "Dose", Key: "dose", Unit: "mg/kg"},
		{Name: "Weight", Key: "weight", Unit: "kg"},
		{Name: "Concentration", Key: "conc", Unit: "mg/ml"},
	}, "return (dose * weight) / conc")

	r := Evaluate(c, map[string]string{"conc": "50", "weight": "20", "dose": "5"})
	require.Equal(t, ResultNumber, r.Kind)
	require.Equal(t, 2.0, r.Number)
}

func TestEvaluateReportsFirstBadInputInDeclarationOrder(t *testing.T) {
	c := calc([]Variable{
		{Name: "A", Key: "a", Unit: "x"},
		{Name: "B", Key: "b", Unit: "x"},
	}, "return a + b")

	r := Evaluate(c, map[string]string{"a": "?", "b": "?"})
	require.Equal(t, "Error: invalid input for A", r.Display)
}

func TestHasErrorMarker(t *testing.T) {
	require.True(t, HasErrorMarker("Error: x"))
	require.True(t, HasErrorMarker("error:x"))
	require.True(t, HasErrorMarker(" \nERRO: x"))
	require.False(t, HasErrorMarker("Errors found"))
	require.False(t, HasErrorMarker("No error: fine"))
}

func TestDecodeImport(t *testing.T) {
	good := `[{"id":"custom-1","name":"A","description":"","variables":[{"name":"X","key":"x","unit":"u"}],"formula":"return x","resultUnit":"","type":"custom","group":"G","helpText":"h"}]`
	calcs, err := DecodeImport([]byte(good))
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	require.Equal(t, "custom-1", calcs[0].ID)
	require.Equal(t, "h", calcs[0].HelpText)
	require.Equal(t, []string{"x"}, calcs[0].Keys())

	bad := []struct {
		name string
		data string
	}{
		{"not json", `{oops`},
		{"object instead of array", `{"id":"x"}`},
		{"missing field", `[{"id":"a","name":"A","variables":[],"formula":"","resultUnit":"","type":"custom","group":"G"}]`},
		{"wrong field type", `[{"id":1,"name":"A","description":"","variables":[],"formula":"","resultUnit":"","type":"custom","group":"G"}]`},
		{"null field", `[{"id":"a","name":null,"description":"","variables":[],"formula":"","resultUnit":"","type":"custom","group":"G"}]`},
		{"variables not an array", `[{"id":"a","name":"A","description":"","variables":{},"formula":"","resultUnit":"","type":"custom","group":"G"}]`},
		{"unknown type", `[{"id":"a","name":"A","description":"","variables":[],"formula":"","resultUnit":"","type":"shared","group":"G"}]`},
		{"one bad record spoils the file", `[` + good[1:len(good)-1] + `, 42]`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImport([]byte(tt.data))
			var ierr *ImportError
			require.True(t, errors.As(err, &ierr), "got %v", err)
		})
	}
}

func TestCheckID(t *testing.T) {
	require.NoError(t, CheckID("custom-0190b6c1-6d4e-7a3c-9f00-1d2e3f4a5b6c"))
	require.NoError(t, CheckID("legacy id?#1"))
	for _, id := range []string{"", "  ", "a/b", `a\b`, "a\nb"} {
		require.Error(t, CheckID(id), "CheckID(%q)", id)
	}
}

func TestDecodeImportRejectsUnaddressableIDs(t *testing.T) {
	for _, id := range []string{"", "mine/dose", "../etc"} {
		data := `[{"id":` + strconv.Quote(id) + `,"name":"A","description":"","variables":[],"formula":"return 1","resultUnit":"","type":"custom","group":"G"}]`
		_, err := DecodeImport([]byte(data))
		var ierr *ImportError
		require.True(t, errors.As(err, &ierr), "id %q: got %v", id, err)
	}
}

func TestProgram(t *testing.T) {
	c := calc([]Variable{{Name: "Weight", Key: "weight", Unit: "kg"}}, "return weight * 2")
	p := Prepare(c)
	require.NoError(t, p.Err())
	require.Equal(t, c, p.Calculator())
	require.True(t, p.Compiled(c))

	results := make([]Result, 50)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Evaluate(map[string]string{"weight": strconv.Itoa(i)})
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		require.Equal(t, float64(2*i), r.Number)
	}

	changed := c
	changed.Formula = "return weight * 3"
	require.False(t, p.Compiled(changed))
	renamed := c
	renamed.Name = "Renamed"
	require.True(t, p.Compiled(renamed))
}

func TestProgramCompileError(t *testing.T) {
	p := Prepare(calc(nil, "return ("))
	require.Error(t, p.Err())

	r := p.Execute(nil)
	require.Equal(t, ResultError, r.Kind)
	require.True(t, strings.HasPrefix(r.Display, "Error in formula: "))
	var rerr *RuntimeFormulaError
	require.True(t, errors.As(r.Err, &rerr))
}

func TestExportRoundTrip(t *testing.T) {
	c, err := NewCustom(validDraft(), "custom-1")
	require.NoError(t, err)

	data, err := EncodeExport([]Calculator{c})
	require.NoError(t, err)
	require.Contains(t, string(data), "\n  {\n    \"id\": \"custom-1\"")
	require.NotContains(t, string(data), "helpText")

	back, err := DecodeImport(data)
	require.NoError(t, err)
	require.Equal(t, []Calculator{c}, back)
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "vetcalc_calculators_2024-03-09.json", ExportFilename(ts))
}
