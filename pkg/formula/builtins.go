package formula

import (
	"fmt"
	"math"
	"strings"
)

type callable interface {
	name() string
	call(in *interp, args []Value, pos Pos) (Value, error)
}

// native is a Go function exposed to formulas.
type native struct {
	fname string
	fn    func(args []Value) (Value, error)
}

func (n *native) name() string { return n.fname }

func (n *native) call(_ *interp, args []Value, _ Pos) (Value, error) {
	return n.fn(args)
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func mathFunc1(name string, f func(float64) float64) Value {
	return funcValue(&native{fname: name, fn: func(args []Value) (Value, error) {
		return NumberValue(f(arg(args, 0).toNumber())), nil
	}})
}

func mathFunc2(name string, f func(float64, float64) float64) Value {
	return funcValue(&native{fname: name, fn: func(args []Value) (Value, error) {
		return NumberValue(f(arg(args, 0).toNumber(), arg(args, 1).toNumber())), nil
	}})
}

func mathFuncN(name string, empty float64, pick func(acc, x float64) float64) Value {
	return funcValue(&native{fname: name, fn: func(args []Value) (Value, error) {
		acc := empty
		for _, a := range args {
			x := a.toNumber()
			if math.IsNaN(x) {
				return NumberValue(math.NaN()), nil
			}
			acc = pick(acc, x)
		}
		return NumberValue(acc), nil
	}})
}

// jsRound rounds half up, towards +Infinity.
func jsRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r := math.Floor(x + 0.5)
	if r == 0 && x < 0 {
		return math.Copysign(0, -1)
	}
	// x + 0.5 can round up for the largest doubles below .5.
	if r-x > 0.5 {
		r--
	}
	return r
}

func jsSign(x float64) float64 {
	switch {
	case math.IsNaN(x) || x == 0:
		return x
	case x > 0:
		return 1
	default:
		return -1
	}
}

func jsPow(x, y float64) float64 {
	if math.IsNaN(y) {
		return math.NaN()
	}
	if (x == 1 || x == -1) && math.IsInf(y, 0) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

func jsHypot(args []Value) (Value, error) {
	sum := 0.0
	for _, a := range args {
		x := a.toNumber()
		if math.IsInf(x, 0) {
			return NumberValue(math.Inf(1)), nil
		}
		sum = math.Hypot(sum, x)
	}
	return NumberValue(sum), nil
}

var mathObject = &object{
	name: "Math",
	members: map[string]Value{
		"PI":    NumberValue(math.Pi),
		"E":     NumberValue(math.E),
		"LN2":   NumberValue(math.Ln2),
		"LN10":  NumberValue(math.Ln10),
		"SQRT2": NumberValue(math.Sqrt2),
		"abs":   mathFunc1("abs", math.Abs),
		"ceil":  mathFunc1("ceil", math.Ceil),
		"floor": mathFunc1("floor", math.Floor),
		"round": mathFunc1("round", jsRound),
		"trunc": mathFunc1("trunc", math.Trunc),
		"sign":  mathFunc1("sign", jsSign),
		"sqrt":  mathFunc1("sqrt", math.Sqrt),
		"cbrt":  mathFunc1("cbrt", math.Cbrt),
		"exp":   mathFunc1("exp", math.Exp),
		"log":   mathFunc1("log", math.Log),
		"log10": mathFunc1("log10", math.Log10),
		"log2":  mathFunc1("log2", math.Log2),
		"sin":   mathFunc1("sin", math.Sin),
		"cos":   mathFunc1("cos", math.Cos),
		"tan":   mathFunc1("tan", math.Tan),
		"atan":  mathFunc1("atan", math.Atan),
		"pow":   mathFunc2("pow", jsPow),
		"atan2": mathFunc2("atan2", math.Atan2),
		"min":   mathFuncN("min", math.Inf(1), math.Min),
		"max":   mathFuncN("max", math.Inf(-1), math.Max),
		"hypot": funcValue(&native{fname: "hypot", fn: jsHypot}),
	},
}

// globals is the read-only outermost scope shared by every formula.
var globals = map[string]Value{
	"Math":      objectValue(mathObject),
	"NaN":       NumberValue(math.NaN()),
	"Infinity":  NumberValue(math.Inf(1)),
	"undefined": Undefined,
	"isNaN": funcValue(&native{fname: "isNaN", fn: func(args []Value) (Value, error) {
		return BoolValue(math.IsNaN(arg(args, 0).toNumber())), nil
	}}),
	"isFinite": funcValue(&native{fname: "isFinite", fn: func(args []Value) (Value, error) {
		x := arg(args, 0).toNumber()
		return BoolValue(!math.IsNaN(x) && !math.IsInf(x, 0)), nil
	}}),
	"parseFloat": funcValue(&native{fname: "parseFloat", fn: func(args []Value) (Value, error) {
		return NumberValue(parseFloatPrefix(arg(args, 0).String())), nil
	}}),
	"Number": funcValue(&native{fname: "Number", fn: func(args []Value) (Value, error) {
		if len(args) == 0 {
			return NumberValue(0), nil
		}
		return NumberValue(args[0].toNumber()), nil
	}}),
}

// digitsArg validates the optional digits argument of the number formatting
// methods.
func digitsArg(method string, v Value, lo, hi int, def int) (int, error) {
	if v.kind == KindUndefined {
		return def, nil
	}
	f := v.toNumber()
	if math.IsNaN(f) {
		f = 0
	}
	f = math.Trunc(f)
	if f < float64(lo) || f > float64(hi) {
		return 0, fmt.Errorf("%s() argument must be between %d and %d", method, lo, hi)
	}
	return int(f), nil
}

func bound(name string, fn func(args []Value) (Value, error)) Value {
	return funcValue(&native{fname: name, fn: fn})
}

func numberMember(x float64, name string) (Value, bool) {
	switch name {
	case "toFixed":
		return bound(name, func(args []Value) (Value, error) {
			f, err := digitsArg(name, arg(args, 0), 0, 100, 0)
			if err != nil {
				return Undefined, err
			}
			return StringValue(ToFixed(x, f)), nil
		}), true
	case "toExponential":
		return bound(name, func(args []Value) (Value, error) {
			f, err := digitsArg(name, arg(args, 0), 0, 100, -1)
			if err != nil {
				return Undefined, err
			}
			return StringValue(ToExponential(x, f)), nil
		}), true
	case "toPrecision":
		return bound(name, func(args []Value) (Value, error) {
			if arg(args, 0).kind == KindUndefined {
				return StringValue(NumberToString(x)), nil
			}
			p, err := digitsArg(name, arg(args, 0), 1, 100, 1)
			if err != nil {
				return Undefined, err
			}
			return StringValue(ToPrecision(x, p)), nil
		}), true
	case "toString":
		return bound(name, func([]Value) (Value, error) {
			return StringValue(NumberToString(x)), nil
		}), true
	}
	return Undefined, false
}

func stringMember(s string, name string) (Value, bool) {
	switch name {
	case "length":
		return NumberValue(float64(len([]rune(s)))), true
	case "toUpperCase":
		return bound(name, func([]Value) (Value, error) { return StringValue(strings.ToUpper(s)), nil }), true
	case "toLowerCase":
		return bound(name, func([]Value) (Value, error) { return StringValue(strings.ToLower(s)), nil }), true
	case "trim":
		return bound(name, func([]Value) (Value, error) { return StringValue(strings.TrimSpace(s)), nil }), true
	case "toString":
		return bound(name, func([]Value) (Value, error) { return StringValue(s), nil }), true
	}
	return Undefined, false
}
