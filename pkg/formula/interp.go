package formula

import (
	"fmt"
	"math"
)

const (
	maxCallDepth = 64
	// maxSteps bounds the work of one evaluation. Without loops the only way
	// to reach it is fan-out recursion through arrow functions.
	maxSteps = 1_000_000
)

type binding struct {
	v        Value
	constant bool
}

type scope struct {
	vars   map[string]*binding
	parent *scope
	// function marks the scope that receives var declarations.
	function bool
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]*binding), parent: parent}
}

func newFunctionScope(parent *scope) *scope {
	sc := newScope(parent)
	sc.function = true
	return sc
}

func (s *scope) functionScope() *scope {
	sc := s
	for !sc.function && sc.parent != nil {
		sc = sc.parent
	}
	return sc
}

func (s *scope) lookup(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

type interp struct {
	depth int
	steps int
}

func (in *interp) errorf(pos Pos, format string, args ...any) error {
	return &RuntimeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (in *interp) tick(pos Pos) error {
	in.steps++
	if in.steps > maxSteps {
		return in.errorf(pos, "evaluation step limit exceeded")
	}
	return nil
}

func (in *interp) resolve(sc *scope, name string, pos Pos) (Value, error) {
	if b, ok := sc.lookup(name); ok {
		return b.v, nil
	}
	if v, ok := globals[name]; ok {
		return v, nil
	}
	return Undefined, in.errorf(pos, "%s is not defined", name)
}

// completion carries a return out of nested statements.
type completion struct {
	returned bool
	value    Value
}

func (in *interp) execBlock(sc *scope, b *blockStmt) (completion, error) {
	for _, s := range b.stmts {
		c, err := in.exec(sc, s)
		if err != nil || c.returned {
			return c, err
		}
	}
	return completion{}, nil
}

func (in *interp) exec(sc *scope, s stmt) (completion, error) {
	if err := in.tick(s.position()); err != nil {
		return completion{}, err
	}

	switch s := s.(type) {
	case *exprStmt:
		_, err := in.eval(sc, s.x)
		return completion{}, err
	case *declStmt:
		for _, d := range s.decls {
			v := Undefined
			if d.init != nil {
				var err error
				if v, err = in.eval(sc, d.init); err != nil {
					return completion{}, err
				}
			}
			if s.kind == declVar {
				target := sc.functionScope()
				if b, ok := target.vars[d.name]; ok {
					if d.init != nil {
						b.v = v
					}
					continue
				}
				target.vars[d.name] = &binding{v: v}
				continue
			}
			sc.vars[d.name] = &binding{v: v, constant: s.kind == declConst}
		}
		return completion{}, nil
	case *ifStmt:
		cond, err := in.eval(sc, s.cond)
		if err != nil {
			return completion{}, err
		}
		if cond.truthy() {
			return in.execNested(sc, s.then)
		}
		if s.els != nil {
			return in.execNested(sc, s.els)
		}
		return completion{}, nil
	case *blockStmt:
		return in.execBlock(newScope(sc), s)
	case *returnStmt:
		if s.value == nil {
			return completion{returned: true, value: Undefined}, nil
		}
		v, err := in.eval(sc, s.value)
		return completion{returned: true, value: v}, err
	}
	return completion{}, in.errorf(s.position(), "unsupported statement")
}

// execNested runs the branch of an if statement.
func (in *interp) execNested(sc *scope, s stmt) (completion, error) {
	if b, ok := s.(*blockStmt); ok {
		return in.execBlock(newScope(sc), b)
	}
	return in.exec(sc, s)
}

func (in *interp) eval(sc *scope, e expr) (Value, error) {
	if err := in.tick(e.position()); err != nil {
		return Undefined, err
	}

	switch e := e.(type) {
	case *numberLit:
		return NumberValue(e.v), nil
	case *stringLit:
		return StringValue(e.v), nil
	case *boolLit:
		return BoolValue(e.v), nil
	case *identExpr:
		return in.resolve(sc, e.name, e.pos)
	case *unaryExpr:
		x, err := in.eval(sc, e.x)
		if err != nil {
			return Undefined, err
		}
		switch e.op {
		case "-":
			return NumberValue(-x.toNumber()), nil
		case "+":
			return NumberValue(x.toNumber()), nil
		default:
			return BoolValue(!x.truthy()), nil
		}
	case *binaryExpr:
		l, err := in.eval(sc, e.l)
		if err != nil {
			return Undefined, err
		}
		r, err := in.eval(sc, e.r)
		if err != nil {
			return Undefined, err
		}
		return binaryOp(e.op, l, r), nil
	case *logicalExpr:
		l, err := in.eval(sc, e.l)
		if err != nil {
			return Undefined, err
		}
		if (e.op == "&&") != l.truthy() {
			return l, nil
		}
		return in.eval(sc, e.r)
	case *condExpr:
		c, err := in.eval(sc, e.cond)
		if err != nil {
			return Undefined, err
		}
		if c.truthy() {
			return in.eval(sc, e.a)
		}
		return in.eval(sc, e.b)
	case *assignExpr:
		return in.assign(sc, e)
	case *memberExpr:
		x, err := in.eval(sc, e.x)
		if err != nil {
			return Undefined, err
		}
		return in.member(x, e)
	case *callExpr:
		return in.callExpr(sc, e)
	case *arrowFunc:
		return funcValue(&closure{fn: e, env: sc}), nil
	}
	return Undefined, in.errorf(e.position(), "unsupported expression")
}

func (in *interp) assign(sc *scope, e *assignExpr) (Value, error) {
	b, ok := sc.lookup(e.name)
	if !ok {
		if _, global := globals[e.name]; global {
			return Undefined, in.errorf(e.pos, "assignment to constant variable '%s'", e.name)
		}
		return Undefined, in.errorf(e.pos, "%s is not defined", e.name)
	}
	if b.constant {
		return Undefined, in.errorf(e.pos, "assignment to constant variable '%s'", e.name)
	}

	v, err := in.eval(sc, e.value)
	if err != nil {
		return Undefined, err
	}
	if e.op != "=" {
		v = binaryOp(e.op[:len(e.op)-1], b.v, v)
	}
	b.v = v
	return v, nil
}

func (in *interp) member(x Value, e *memberExpr) (Value, error) {
	switch x.kind {
	case KindNumber:
		if v, ok := numberMember(x.num, e.name); ok {
			return v, nil
		}
	case KindString:
		if v, ok := stringMember(x.str, e.name); ok {
			return v, nil
		}
	case KindBool:
		if e.name == "toString" {
			s := x.String()
			return bound(e.name, func([]Value) (Value, error) { return StringValue(s), nil }), nil
		}
	case KindObject:
		if v, ok := x.obj.members[e.name]; ok {
			return v, nil
		}
	case KindUndefined:
		return Undefined, in.errorf(e.pos, "cannot read properties of undefined (reading '%s')", e.name)
	}
	return Undefined, nil
}

func describeCallee(e expr) string {
	switch e := e.(type) {
	case *identExpr:
		return e.name
	case *memberExpr:
		return describeCallee(e.x) + "." + e.name
	case *callExpr:
		return describeCallee(e.fn) + "(...)"
	default:
		return "expression"
	}
}

func (in *interp) callExpr(sc *scope, e *callExpr) (Value, error) {
	fn, err := in.eval(sc, e.fn)
	if err != nil {
		return Undefined, err
	}
	if fn.kind != KindFunction {
		return Undefined, in.errorf(e.pos, "%s is not a function", describeCallee(e.fn))
	}

	args := make([]Value, len(e.args))
	for i, a := range e.args {
		if args[i], err = in.eval(sc, a); err != nil {
			return Undefined, err
		}
	}

	in.depth++
	defer func() { in.depth-- }()
	if in.depth > maxCallDepth {
		return Undefined, in.errorf(e.pos, "maximum call depth exceeded")
	}

	v, err := fn.fn.call(in, args, e.pos)
	if err != nil {
		if _, ok := err.(*RuntimeError); !ok {
			err = &RuntimeError{Pos: e.pos, Msg: err.Error()}
		}
		return Undefined, err
	}
	return v, nil
}

// closure is an arrow function together with the scope it was created in.
type closure struct {
	fn  *arrowFunc
	env *scope
}

func (c *closure) name() string { return "anonymous" }

func (c *closure) call(in *interp, args []Value, _ Pos) (Value, error) {
	sc := newFunctionScope(c.env)
	for i, p := range c.fn.params {
		sc.vars[p] = &binding{v: arg(args, i)}
	}
	if c.fn.value != nil {
		return in.eval(sc, c.fn.value)
	}
	comp, err := in.execBlock(sc, c.fn.body)
	if err != nil {
		return Undefined, err
	}
	return comp.value, nil
}

func binaryOp(op string, l, r Value) Value {
	switch op {
	case "+":
		if l.kind == KindString || r.kind == KindString ||
			l.kind == KindFunction || r.kind == KindFunction ||
			l.kind == KindObject || r.kind == KindObject {
			return StringValue(l.String() + r.String())
		}
		return NumberValue(l.toNumber() + r.toNumber())
	case "-":
		return NumberValue(l.toNumber() - r.toNumber())
	case "*":
		return NumberValue(l.toNumber() * r.toNumber())
	case "/":
		return NumberValue(l.toNumber() / r.toNumber())
	case "%":
		return NumberValue(math.Mod(l.toNumber(), r.toNumber()))
	case "**":
		return NumberValue(jsPow(l.toNumber(), r.toNumber()))
	case "==":
		return BoolValue(looseEquals(l, r))
	case "!=":
		return BoolValue(!looseEquals(l, r))
	case "===":
		return BoolValue(strictEquals(l, r))
	case "!==":
		return BoolValue(!strictEquals(l, r))
	case "<", "<=", ">", ">=":
		return BoolValue(compare(op, l, r))
	}
	return NumberValue(math.NaN())
}

func compare(op string, l, r Value) bool {
	if l.kind == KindString && r.kind == KindString {
		switch op {
		case "<":
			return l.str < r.str
		case "<=":
			return l.str <= r.str
		case ">":
			return l.str > r.str
		default:
			return l.str >= r.str
		}
	}
	a, b := l.toNumber(), r.toNumber()
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}
