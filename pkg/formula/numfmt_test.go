package formula

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberToString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{123.456, "123.456"},
		{0.30000000000000004, "0.30000000000000004"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-10, "1.5e-10"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NumberToString(tt.in), "NumberToString(%v)", tt.in)
	}
}

func TestToFixed(t *testing.T) {
	tests := []struct {
		in   float64
		f    int
		want string
	}{
		{123.456, 1, "123.5"},
		{123.456, 0, "123"},
		{1.005, 2, "1.00"},
		{2.5, 0, "3"},
		{-2.5, 0, "-3"},
		{0, 2, "0.00"},
		{0.5, 0, "1"},
		{0.000001, 2, "0.00"},
		{22.0462, 4, "22.0462"},
		{600, 1, "600.0"},
		{1e21, 2, "1e+21"},
		{math.NaN(), 2, "NaN"},
		{math.Inf(1), 2, "Infinity"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ToFixed(tt.in, tt.f), "ToFixed(%v, %d)", tt.in, tt.f)
	}
}

func TestToExponential(t *testing.T) {
	tests := []struct {
		in   float64
		f    int
		want string
	}{
		{0.004512, 4, "4.5120e-3"},
		{123456, 2, "1.23e+5"},
		{9.99, 1, "1.0e+1"},
		{0, 2, "0.00e+0"},
		{-0.005, 4, "-5.0000e-3"},
		{12345, -1, "1.2345e+4"},
		{1, 0, "1e+0"},
		{math.Inf(-1), 2, "-Infinity"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ToExponential(tt.in, tt.f), "ToExponential(%v, %d)", tt.in, tt.f)
	}
}

func TestToPrecision(t *testing.T) {
	tests := []struct {
		in   float64
		p    int
		want string
	}{
		{123.456, 4, "123.5"},
		{0.000123, 2, "0.00012"},
		{123456, 2, "1.2e+5"},
		{1e-7, 1, "1e-7"},
		{0.000001, 1, "0.000001"},
		{99.99, 3, "100"},
		{0, 3, "0.00"},
		{5, 1, "5"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ToPrecision(tt.in, tt.p), "ToPrecision(%v, %d)", tt.in, tt.p)
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.004512, "4.5120e-3"},
		{3.14159265, "3.1416"},
		{2.0, "2"},
		{22.0462, "22.0462"},
		{1234.56789, "1234.5679"},
		{0, "0"},
		{0.01, "0.01"},
		{-0.005, "-5.0000e-3"},
		{-12.5, "-12.5"},
		{1e21, "1e+21"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatResult(tt.in), "FormatResult(%v)", tt.in)
	}
}
