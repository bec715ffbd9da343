package formula

import (
	"math"
	"strconv"
	"strings"
)

// The helpers below format float64 values exactly like the Number methods
// formulas call (toString, toFixed, toExponential, toPrecision). Rounding is
// done on the exact binary value, ties away from zero.

// exactDigits returns the exact decimal significand of a finite positive x
// with trailing zeros removed, and the exponent e such that
// x = d.ddd... * 10^e.
func exactDigits(x float64) (string, int) {
	// 767 significant digits are enough to print any float64 exactly.
	s := strconv.FormatFloat(x, 'e', 767, 64)
	mant, exp, _ := strings.Cut(s, "e")
	e, _ := strconv.Atoi(exp)
	digits := strings.TrimRight(strings.Replace(mant, ".", "", 1), "0")
	if digits == "" {
		digits = "0"
	}
	return digits, e
}

// shortestDigits is like exactDigits but returns the shortest digit string
// that round-trips.
func shortestDigits(x float64) (string, int) {
	s := strconv.FormatFloat(x, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	e, _ := strconv.Atoi(exp)
	return strings.Replace(mant, ".", "", 1), e
}

// roundDigits keeps the first n digits of digits (padding with zeros),
// rounding half up on the remainder. carried reports that the result grew
// by one digit ("999" -> "1000").
func roundDigits(digits string, n int) (out string, carried bool) {
	if n <= 0 {
		if n == 0 && digits != "" && digits[0] >= '5' {
			return "1", true
		}
		return "0", false
	}
	if len(digits) <= n {
		return digits + strings.Repeat("0", n-len(digits)), false
	}

	kept := []byte(digits[:n])
	if digits[n] < '5' {
		return string(kept), false
	}
	i := len(kept) - 1
	for ; i >= 0; i-- {
		if kept[i] == '9' {
			kept[i] = '0'
			continue
		}
		kept[i]++
		break
	}
	if i < 0 {
		return "1" + string(kept), true
	}
	return string(kept), false
}

func signAndAbs(x float64) (string, float64) {
	if x < 0 {
		return "-", -x
	}
	return "", x
}

func exponentSuffix(e int) string {
	if e < 0 {
		return "e-" + strconv.Itoa(-e)
	}
	return "e+" + strconv.Itoa(e)
}

// NumberToString formats x the way formulas print numbers in string
// concatenation: shortest round-trip digits, plain notation between 1e-7 and
// 1e21, exponential notation outside.
func NumberToString(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case x == 0:
		return "0"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	sign, x := signAndAbs(x)
	digits, e := shortestDigits(x)
	k := len(digits)
	n := e + 1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	case k == 1:
		return sign + digits + exponentSuffix(n-1)
	default:
		return sign + digits[:1] + "." + digits[1:] + exponentSuffix(n-1)
	}
}

// ToFixed formats x with exactly f digits after the decimal point.
func ToFixed(x float64, f int) string {
	if math.IsNaN(x) {
		return "NaN"
	}
	if math.Abs(x) >= 1e21 || math.IsInf(x, 0) {
		return NumberToString(x)
	}

	sign, x := signAndAbs(x)
	var m string
	if x == 0 {
		m = "0"
	} else {
		digits, e := exactDigits(x)
		m, _ = roundDigits(digits, e+1+f)
		m = strings.TrimLeft(m, "0")
		if m == "" {
			m = "0"
		}
	}

	if f == 0 {
		return sign + m
	}
	if len(m) <= f {
		m = strings.Repeat("0", f+1-len(m)) + m
	}
	return sign + m[:len(m)-f] + "." + m[len(m)-f:]
}

// ToExponential formats x in exponential notation with f fraction digits.
// A negative f selects as many digits as needed to represent x.
func ToExponential(x float64, f int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	sign, x := signAndAbs(x)
	var m string
	e := 0
	switch {
	case x == 0:
		if f < 0 {
			f = 0
		}
		m = strings.Repeat("0", f+1)
	case f < 0:
		m, e = shortestDigits(x)
	default:
		var digits string
		digits, e = exactDigits(x)
		var carried bool
		m, carried = roundDigits(digits, f+1)
		if carried {
			e++
			m = m[:f+1]
		}
	}

	out := sign + m[:1]
	if len(m) > 1 {
		out += "." + m[1:]
	}
	return out + exponentSuffix(e)
}

// ToPrecision formats x with p significant digits.
func ToPrecision(x float64, p int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	sign, x := signAndAbs(x)
	var m string
	e := 0
	if x == 0 {
		m = strings.Repeat("0", p)
	} else {
		var digits string
		digits, e = exactDigits(x)
		var carried bool
		m, carried = roundDigits(digits, p)
		if carried {
			e++
			m = m[:p]
		}
	}

	if e < -6 || e >= p {
		out := sign + m[:1]
		if p > 1 {
			out += "." + m[1:]
		}
		return out + exponentSuffix(e)
	}
	if e == p-1 {
		return sign + m
	}
	if e >= 0 {
		return sign + m[:e+1] + "." + m[e+1:]
	}
	return sign + "0." + strings.Repeat("0", -(e+1)) + m
}

// FormatResult renders a numeric calculation result: nonzero magnitudes
// below 0.01 use four-digit exponential notation, everything else is
// rounded to four decimals with trailing zeros dropped.
func FormatResult(x float64) string {
	if x != 0 && math.Abs(x) < 0.01 {
		return ToExponential(x, 4)
	}
	return NumberToString(stringToNumber(ToFixed(x, 4)))
}
