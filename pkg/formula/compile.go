package formula

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// CompileError reports a formula body that is not a valid statement
// sequence, or a parameter list that cannot be bound.
type CompileError struct {
	Pos Pos
	Msg string
}

func (e *CompileError) Error() string {
	if e.Pos.Line == 0 {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// RuntimeError is raised while a compiled formula runs.
type RuntimeError struct {
	Pos Pos
	Msg string
}

func (e *RuntimeError) Error() string {
	return e.Msg
}

// ErrNoResult is returned by Validate when a formula runs but produces
// neither a number nor text, typically because it has no return statement.
var ErrNoResult = pkgerrors.New("formula must return a number or text")

// Func is a compiled formula bound to an ordered parameter list. It is
// immutable and safe for concurrent use.
type Func struct {
	params []string
	body   *blockStmt
}

// Compile parses body and binds it to params. Nothing is executed.
func Compile(params []string, body string) (*Func, error) {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if !IsIdentifier(p) {
			return nil, &CompileError{Msg: fmt.Sprintf("'%s' is not a valid parameter name", p)}
		}
		if seen[p] {
			return nil, &CompileError{Msg: fmt.Sprintf("duplicate parameter name '%s'", p)}
		}
		seen[p] = true
	}

	prog, err := parse(body)
	if err != nil {
		return nil, err
	}
	if err := checkFunction(params, prog); err != nil {
		return nil, err
	}

	return &Func{params: append([]string(nil), params...), body: prog}, nil
}

// Params returns the parameter names in binding order.
func (f *Func) Params() []string {
	return append([]string(nil), f.params...)
}

// Call runs the formula with args bound positionally to its parameters. A
// body that finishes without returning yields Undefined.
func (f *Func) Call(args ...float64) (Value, error) {
	if len(args) != len(f.params) {
		return Undefined, &RuntimeError{Msg: fmt.Sprintf("expected %d arguments, got %d", len(f.params), len(args))}
	}

	sc := newFunctionScope(nil)
	for i, p := range f.params {
		sc.vars[p] = &binding{v: NumberValue(args[i])}
	}

	in := &interp{}
	comp, err := in.execBlock(sc, f.body)
	if err != nil {
		return Undefined, err
	}
	return comp.value, nil
}

// DummyArgument is bound to every parameter by Validate.
const DummyArgument = 1.0

// Validate smoke-tests the formula by calling it once with DummyArgument for
// every parameter. It does not guarantee success for other inputs.
func (f *Func) Validate() error {
	args := make([]float64, len(f.params))
	for i := range args {
		args[i] = DummyArgument
	}
	v, err := f.Call(args...)
	if err != nil {
		return err
	}
	if v.kind != KindNumber && v.kind != KindString {
		return pkgerrors.Wrapf(ErrNoResult, "got %s", v.kind)
	}
	return nil
}

// checkFunction rejects lexical redeclarations the way the parser of the
// host language would, before anything runs.
func checkFunction(params []string, body *blockStmt) error {
	declared := make(map[string]declKind, len(params))
	for _, p := range params {
		declared[p] = declVar
	}
	return checkBlock(body, declared)
}

func checkBlock(b *blockStmt, declared map[string]declKind) error {
	for _, s := range b.stmts {
		if err := checkStmt(s, declared); err != nil {
			return err
		}
	}
	return nil
}

func checkStmt(s stmt, declared map[string]declKind) error {
	switch s := s.(type) {
	case *declStmt:
		for _, d := range s.decls {
			prev, ok := declared[d.name]
			if ok && (prev != declVar || s.kind != declVar) {
				return &CompileError{Pos: d.pos, Msg: fmt.Sprintf("identifier '%s' has already been declared", d.name)}
			}
			declared[d.name] = s.kind
			if d.init != nil {
				if err := checkExpr(d.init); err != nil {
					return err
				}
			}
		}
	case *blockStmt:
		return checkBlock(s, map[string]declKind{})
	case *ifStmt:
		if err := checkExpr(s.cond); err != nil {
			return err
		}
		if err := checkStmt(s.then, declared); err != nil {
			return err
		}
		if s.els != nil {
			return checkStmt(s.els, declared)
		}
	case *returnStmt:
		if s.value != nil {
			return checkExpr(s.value)
		}
	case *exprStmt:
		return checkExpr(s.x)
	}
	return nil
}

// checkExpr descends into expressions to reach arrow function bodies.
func checkExpr(e expr) error {
	switch e := e.(type) {
	case *arrowFunc:
		if e.body != nil {
			return checkFunction(e.params, e.body)
		}
		return checkExpr(e.value)
	case *unaryExpr:
		return checkExpr(e.x)
	case *binaryExpr:
		return firstErr(checkExpr(e.l), checkExpr(e.r))
	case *logicalExpr:
		return firstErr(checkExpr(e.l), checkExpr(e.r))
	case *condExpr:
		return firstErr(checkExpr(e.cond), checkExpr(e.a), checkExpr(e.b))
	case *assignExpr:
		return checkExpr(e.value)
	case *memberExpr:
		return checkExpr(e.x)
	case *callExpr:
		errs := []error{checkExpr(e.fn)}
		for _, a := range e.args {
			errs = append(errs, checkExpr(a))
		}
		return firstErr(errs...)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
