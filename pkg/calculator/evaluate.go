package calculator

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charlie0129/vetcalc/pkg/formula"
)

const (
	msgInvalidNumber = "Error: the calculation produced an invalid number."
	msgInvalidResult = "Error: the result of the calculation is neither a number nor valid text."
	msgFormulaPrefix = "Error in formula: "
	msgInputPrefix   = "Error: "
)

// ResultKind classifies a calculation outcome.
type ResultKind string

const (
	ResultNumber ResultKind = "number"
	ResultText   ResultKind = "text"
	ResultError  ResultKind = "error"
)

// Result is the outcome of one calculation. Display is what a user sees: the
// formatted number, the text, or the error message.
type Result struct {
	Kind ResultKind `json:"kind" yaml:"kind"`
	// Number is set for number results only.
	Number float64 `json:"number,omitempty" yaml:"number,omitempty"`
	// Text holds the raw text a formula returned, including text that
	// carries an error marker.
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Display string `json:"display" yaml:"display"`
	// Unit is the calculator's result unit, set for number results.
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// OK reports whether the calculation succeeded.
func (r Result) OK() bool {
	return r.Kind != ResultError
}

func numberResult(x float64, unit string) Result {
	return Result{Kind: ResultNumber, Number: x, Display: formula.FormatResult(x), Unit: unit}
}

func errorResult(display string, err error) Result {
	return Result{Kind: ResultError, Display: display, Err: err}
}

// HasErrorMarker reports whether text returned by a formula is an error
// message by convention: it starts with "error:" (or the legacy "erro:"),
// ignoring case and leading whitespace.
func HasErrorMarker(text string) bool {
	t := strings.ToLower(strings.TrimLeft(text, " \t\r\n"))
	return strings.HasPrefix(t, "error:") || strings.HasPrefix(t, "erro:")
}

// ParseInput parses one text field. Surrounding whitespace is ignored; NaN,
// hexadecimal and partially numeric input are rejected. Infinity is only
// accepted spelled "Infinity" with an optional sign, while overflowing
// values become infinities.
func ParseInput(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return 0, false
		}
		return x, true
	}
	if math.IsNaN(x) {
		return 0, false
	}
	if math.IsInf(x, 0) && strings.TrimLeft(s, "+-") != "Infinity" {
		return 0, false
	}
	return x, true
}

// ParseInputs reads one value per variable, in declaration order. The first
// missing or unparseable field stops parsing with an InputError.
func ParseInputs(calc Calculator, inputs map[string]string) ([]float64, error) {
	args := make([]float64, len(calc.Variables))
	for i, v := range calc.Variables {
		x, ok := ParseInput(inputs[v.Key])
		if !ok {
			name := v.Name
			if name == "" {
				name = v.Key
			}
			return nil, &InputError{Variable: name}
		}
		args[i] = x
	}
	return args, nil
}

// Program is a calculator with its formula compiled once. It is safe for
// concurrent use.
type Program struct {
	calc Calculator
	fn   *formula.Func
	err  error
}

// Prepare compiles calc for repeated evaluation. A formula that does not
// compile still yields a Program whose evaluations report the compile error.
func Prepare(calc Calculator) *Program {
	p := &Program{calc: calc.Clone()}
	p.fn, p.err = p.calc.Compile()
	return p
}

func (p *Program) Calculator() Calculator {
	return p.calc.Clone()
}

// Err returns the compile error, if any.
func (p *Program) Err() error {
	return p.err
}

// Validate runs the authoring checks of the compiled formula.
func (p *Program) Validate() error {
	if p.err != nil {
		return p.err
	}
	return p.fn.Validate()
}

// Compiled reports whether p was prepared from a definition evaluating the
// same way as calc.
func (p *Program) Compiled(calc Calculator) bool {
	return p.calc.Formula == calc.Formula &&
		p.calc.ResultUnit == calc.ResultUnit &&
		slices.Equal(p.calc.Variables, calc.Variables)
}

// Execute runs the formula with args and classifies the output.
func (p *Program) Execute(args []float64) Result {
	if p.err != nil {
		return errorResult(msgFormulaPrefix+p.err.Error(), &RuntimeFormulaError{Msg: p.err.Error(), Err: p.err})
	}

	v, err := p.fn.Call(args...)
	if err != nil {
		return errorResult(msgFormulaPrefix+err.Error(), &RuntimeFormulaError{Msg: err.Error(), Err: err})
	}

	switch {
	case v.IsNumber():
		x := v.Float()
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errorResult(msgInvalidNumber, &RuntimeFormulaError{Msg: "non-finite result " + v.String()})
		}
		return numberResult(x, p.calc.ResultUnit)
	case v.IsString():
		text := v.Text()
		if HasErrorMarker(text) {
			r := errorResult(text, &RuntimeFormulaError{Msg: text})
			r.Text = text
			return r
		}
		return Result{Kind: ResultText, Text: text, Display: text}
	default:
		return errorResult(msgInvalidResult, &RuntimeFormulaError{Msg: "unusable result " + v.Kind().String()})
	}
}

// Evaluate runs one calculation: parse every input, then execute. Input
// errors stop before the formula runs.
func (p *Program) Evaluate(inputs map[string]string) Result {
	args, err := ParseInputs(p.calc, inputs)
	if err != nil {
		return errorResult(msgInputPrefix+err.Error(), err)
	}
	return p.Execute(args)
}

// Execute compiles calc and runs it once with args.
func Execute(calc Calculator, args []float64) Result {
	return Prepare(calc).Execute(args)
}

// Evaluate compiles calc and runs one calculation. Callers evaluating the
// same calculator repeatedly should Prepare it once instead.
func Evaluate(calc Calculator, inputs map[string]string) Result {
	return Prepare(calc).Evaluate(inputs)
}
