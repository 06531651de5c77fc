// Package decimal implements exact scaled-integer parsing, formatting, and
// rounding division over base-10 decimal strings. It exists so that no
// amount the exchange settles on is ever produced through floating-point
// arithmetic: "0.380" parses to the identical scaled integer on every
// platform, every time.
package decimal

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// PrecisionError reports a decimal string carrying more fractional digits
// than the target scale allows.
type PrecisionError struct {
	Value     string
	Digits    int
	MaxDigits int
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("value %s has %d fractional digits, max %d", e.Value, e.Digits, e.MaxDigits)
}

// RangeError reports a decimal whose scaled value does not fit in an int64.
type RangeError struct {
	Value string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("decimal %s overflows int64", e.Value)
}

// SyntaxError reports a string that is not a well-formed decimal number.
type SyntaxError struct {
	Value string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid decimal %q", e.Value)
}

// Parse converts a base-10 decimal string into an integer scaled by
// 10^digits. The integer and fractional parts are combined digit-by-digit;
// the fractional part is right-padded with zeros up to the scale. A
// fractional part longer than the scale is an error, never a silent
// truncation.
func Parse(value string, digits int) (int64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, &SyntaxError{Value: value}
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, &SyntaxError{Value: value}
	}
	if intPart == "" {
		intPart = "0"
	}
	if hasDot && fracPart == "" {
		fracPart = "0"
	}

	if len(fracPart) > digits {
		// Trailing zeros beyond the scale are harmless; only reject when a
		// significant digit would be lost.
		if strings.Trim(fracPart[digits:], "0") != "" {
			return 0, &PrecisionError{Value: value, Digits: significantFracDigits(fracPart), MaxDigits: digits}
		}
		fracPart = fracPart[:digits]
	}

	i, err := parseDigits(intPart)
	if err != nil {
		if errors.Is(err, errDigitsOverflow) {
			return 0, &RangeError{Value: value}
		}
		return 0, &SyntaxError{Value: value}
	}
	f, err := parseDigits(padRight(fracPart, digits))
	if err != nil {
		return 0, &SyntaxError{Value: value}
	}

	scale := pow10(digits)
	if i > (math.MaxInt64-f)/scale {
		return 0, &RangeError{Value: value}
	}
	n := i*scale + f
	if neg {
		n = -n
	}
	return n, nil
}

// Format renders a scaled integer back into a decimal string with exactly
// the significant fractional digits (trailing zeros stripped, "x" not "x.").
func Format(n int64, digits int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	scale := pow10(digits)
	intPart := n / scale
	fracPart := n % scale

	out := fmt.Sprintf("%d", intPart)
	if fracPart != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%0*d", digits, fracPart), "0")
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// CeilDiv divides n by d rounding toward positive infinity. Both operands
// must be non-negative; it is used whenever rounding must favor the
// exchange over the order's maker.
func CeilDiv(n, d int64) int64 {
	return (n + d - 1) / d
}

// FloorDiv divides n by d rounding toward zero. Both operands must be
// non-negative.
func FloorDiv(n, d int64) int64 {
	return n / d
}

// CeilDivBig is CeilDiv over big integers, for products that may exceed the
// int64 range.
func CeilDivBig(n, d *big.Int) *big.Int {
	num := new(big.Int).Add(n, new(big.Int).Sub(d, big.NewInt(1)))
	return num.Div(num, d)
}

// FloorDivBig is FloorDiv over big integers.
func FloorDivBig(n, d *big.Int) *big.Int {
	return new(big.Int).Div(n, d)
}

// significantFracDigits counts fractional digits with trailing zeros
// stripped, so the error names the digits that actually matter.
func significantFracDigits(frac string) int {
	return len(strings.TrimRight(frac, "0"))
}

var errDigitsOverflow = errors.New("digit string overflows int64")

// parseDigits parses a non-empty string of ASCII digits into an int64.
func parseDigits(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty digit string")
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q", c)
		}
		if n > (math.MaxInt64-9)/10 {
			return 0, errDigitsOverflow
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += "0"
	}
	return s
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
