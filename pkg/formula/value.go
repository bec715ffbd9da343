package formula

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNumber
	KindString
	KindBool
	KindFunction
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindFunction:
		return "function"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a dynamically typed formula value. The zero Value is undefined.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	fn   callable
	obj  *object
}

// Undefined is the value of a missing result.
var Undefined = Value{}

// NumberValue returns a number Value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func funcValue(fn callable) Value {
	return Value{kind: KindFunction, fn: fn}
}

func objectValue(o *object) Value {
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

// Float returns the number held by v. It is only meaningful for KindNumber.
func (v Value) Float() float64 { return v.num }

// Text returns the string held by v. It is only meaningful for KindString.
func (v Value) Text() string { return v.str }

func (v Value) IsNumber() bool { return v.kind == KindNumber }

func (v Value) IsString() bool { return v.kind == KindString }

// String converts v to text the way string concatenation does.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return NumberToString(v.num)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindFunction:
		return "function " + v.fn.name() + "() { [code] }"
	case KindObject:
		return "[object " + v.obj.name + "]"
	default:
		return "undefined"
	}
}

// object is a read-only namespace such as Math.
type object struct {
	name    string
	members map[string]Value
}

func (v Value) truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	case KindBool:
		return v.b
	case KindFunction, KindObject:
		return true
	default:
		return false
	}
}

func (v Value) toNumber() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return stringToNumber(v.str)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// parseFloatPrefix parses the longest numeric prefix of s, like the
// parseFloat global.
func parseFloatPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\f\v\u00a0\ufeff")
	m := floatPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	return stringToNumber(m)
}

func strictEquals(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined:
		return true
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindFunction:
		return a.fn == b.fn
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

func looseEquals(a, b Value) bool {
	if a.kind == b.kind {
		return strictEquals(a, b)
	}
	switch {
	case a.kind == KindUndefined || b.kind == KindUndefined:
		return false
	case a.kind == KindBool:
		return looseEquals(NumberValue(a.toNumber()), b)
	case b.kind == KindBool:
		return looseEquals(a, NumberValue(b.toNumber()))
	case a.kind == KindNumber && b.kind == KindString:
		return a.num == stringToNumber(b.str)
	case a.kind == KindString && b.kind == KindNumber:
		return stringToNumber(a.str) == b.num
	}
	return false
}
