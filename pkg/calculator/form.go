package calculator

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// FormState is the lifecycle of one calculation in a Form.
type FormState int

const (
	Collecting FormState = iota
	Parsing
	Executing
	Succeeded
	Errored
)

func (s FormState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Parsing:
		return "parsing"
	case Executing:
		return "executing"
	case Succeeded:
		return "succeeded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("FormState(%d)", int(s))
	}
}

// Form is the input state of one calculator view. It is not safe for
// concurrent use.
type Form struct {
	calc   Calculator
	prog   *Program
	values map[string]string
	result *Result
	state  FormState
	help   bool

	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to FormState)
}

func NewForm(calc Calculator) *Form {
	f := &Form{}
	f.Select(calc)
	return f
}

// Select switches the form to calc and resets all transient state: values
// are emptied, the result is cleared and help is collapsed.
func (f *Form) Select(calc Calculator) {
	f.SelectProgram(Prepare(calc))
}

// SelectProgram is Select for an already compiled calculator.
func (f *Form) SelectProgram(p *Program) {
	calc := p.calc
	f.prog = p
	f.calc = calc.Clone()
	f.values = make(map[string]string, len(calc.Variables))
	for _, v := range calc.Variables {
		f.values[v.Key] = ""
	}
	f.result = nil
	f.help = false
	f.transition(Collecting)
}

func (f *Form) Calculator() Calculator {
	return f.calc
}

func (f *Form) State() FormState {
	return f.state
}

func (f *Form) transition(to FormState) {
	from := f.state
	f.state = to
	if f.OnTransition != nil && from != to {
		f.OnTransition(from, to)
	}
}

// SetInput stores the text of one field and clears any shown result.
func (f *Form) SetInput(key, text string) error {
	if _, ok := f.values[key]; !ok {
		return pkgerrors.Errorf("%s has no input %q", f.calc.Name, key)
	}
	f.values[key] = text
	f.result = nil
	f.transition(Collecting)
	return nil
}

// Value returns the current text of a field.
func (f *Form) Value(key string) string {
	return f.values[key]
}

// Values returns a copy of every field's text, keyed by variable key.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Missing returns the variables whose field is still empty, in declaration
// order.
func (f *Form) Missing() []Variable {
	var missing []Variable
	for _, v := range f.calc.Variables {
		if f.values[v.Key] == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Submit runs the calculation on the current values and keeps the result
// until the next input change or selection.
func (f *Form) Submit() Result {
	f.transition(Parsing)
	args, err := ParseInputs(f.calc, f.values)
	if err != nil {
		r := errorResult(msgInputPrefix+err.Error(), err)
		return f.finish(r)
	}

	f.transition(Executing)
	return f.finish(f.prog.Execute(args))
}

func (f *Form) finish(r Result) Result {
	f.result = &r
	if r.OK() {
		f.transition(Succeeded)
	} else {
		f.transition(Errored)
	}
	return r
}

// Result returns the shown result, if any.
func (f *Form) Result() (Result, bool) {
	if f.result == nil {
		return Result{}, false
	}
	return *f.result, true
}

// ToggleHelp expands or collapses the help text and reports whether it is
// now shown. Calculators without help text never show it.
func (f *Form) ToggleHelp() bool {
	if f.calc.HelpText == "" {
		f.help = false
		return false
	}
	f.help = !f.help
	return f.help
}

func (f *Form) HelpVisible() bool {
	return f.help
}
