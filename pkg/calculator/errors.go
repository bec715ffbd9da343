package calculator

// ValidationError rejects a calculator definition at authoring time.
type ValidationError struct {
	// Field is the JSON path of the offending draft field, e.g.
	// "variables[1].unit". Empty for whole-draft problems.
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InputError reports a calculation input that is not a number.
type InputError struct {
	// Variable is the display name of the input.
	Variable string
}

func (e *InputError) Error() string {
	return "invalid input for " + e.Variable
}

// RuntimeFormulaError reports a formula that failed while running or
// produced an unusable result.
type RuntimeFormulaError struct {
	Msg string
	Err error
}

func (e *RuntimeFormulaError) Error() string {
	return e.Msg
}

func (e *RuntimeFormulaError) Unwrap() error {
	return e.Err
}

// ImportError rejects an import file as a whole.
type ImportError struct {
	Msg string
	Err error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
