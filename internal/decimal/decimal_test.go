package decimal

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		value  string
		digits int
		want   int64
	}{
		{"0.380", 6, 380000},
		{"0.38", 6, 380000},
		{"0.5", 6, 500000},
		{"1", 6, 1000000},
		{"50", 6, 50000000},
		{"22.123896", 6, 22123896},
		{"0.001", 6, 1000},
		{"0", 6, 0},
		{"0.000001", 6, 1},
		{"-1.5", 6, -1500000},
		{"+2.25", 6, 2250000},
		{".5", 6, 500000},
		{"3.", 6, 3000000},
		{"0.123", 3, 123},
		{"0.120000", 3, 120}, // trailing zeros beyond scale are not significant
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := Parse(tt.value, tt.digits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePrecisionError(t *testing.T) {
	_, err := Parse("0.1234567", 6)
	var perr *PrecisionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 7, perr.Digits)
	assert.Equal(t, 6, perr.MaxDigits)

	_, err = Parse("0.0001", 3)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4, perr.Digits)
	assert.Equal(t, 3, perr.MaxDigits)
}

func TestParseSyntaxError(t *testing.T) {
	for _, v := range []string{"", ".", "abc", "1.2.3", "1,5", "--1", "0x10"} {
		_, err := Parse(v, 6)
		var serr *SyntaxError
		assert.True(t, errors.As(err, &serr), "value %q should be a syntax error, got %v", v, err)
	}
}

// Values whose scaled form does not fit in an int64 must error, never wrap
// into a plausible-looking wrong amount.
func TestParseRangeError(t *testing.T) {
	for _, v := range []string{
		"9223372036854775.808", // wraps int64 once scaled by 1e6
		"99999999999999999999", // 20-digit integer part
		"9223372036854775807",  // would need headroom for the 1e6 scale
	} {
		_, err := Parse(v, 6)
		var rerr *RangeError
		assert.True(t, errors.As(err, &rerr), "value %q should be a range error, got %v", v, err)
	}

	// Largest representable scaled value still parses.
	n, err := Parse("9223372036854.775807", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), n)
}

// Round-trip: for any decimal string with at most 6 fractional digits,
// parse-then-format reproduces the exact digits with no drift.
func TestRoundTripPrecision(t *testing.T) {
	values := []string{
		"0.380", "0.5", "22.123896", "0.000001", "999999.999999",
		"1", "0.1", "0.25", "17.000003", "50",
	}
	for _, v := range values {
		n, err := Parse(v, 6)
		require.NoError(t, err)
		back, err := Parse(Format(n, 6), 6)
		require.NoError(t, err)
		assert.Equal(t, n, back, "round trip of %s", v)
	}
}

// Exhaustive sweep over three fractional digits: no value drifts.
func TestRoundTripSweep(t *testing.T) {
	for i := int64(0); i < 1000; i++ {
		v := fmt.Sprintf("0.%03d", i)
		n, err := Parse(v, 6)
		require.NoError(t, err)
		assert.Equal(t, i*1000, n, "parse %s", v)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		n      int64
		digits int
		want   string
	}{
		{380000, 6, "0.38"},
		{500000, 6, "0.5"},
		{22123000, 6, "22.123"},
		{22124000, 6, "22.124"},
		{0, 6, "0"},
		{1, 6, "0.000001"},
		{5000000, 6, "5"},
		{-1500000, 6, "-1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.n, tt.digits))
	}
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(1), CeilDiv(1, 1000))
	assert.Equal(t, int64(1), CeilDiv(1000, 1000))
	assert.Equal(t, int64(2), CeilDiv(1001, 1000))
	assert.Equal(t, int64(0), CeilDiv(0, 1000))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(0), FloorDiv(999, 1000))
	assert.Equal(t, int64(1), FloorDiv(1000, 1000))
	assert.Equal(t, int64(1), FloorDiv(1999, 1000))
}

func TestBigDivisionAgreesWithInt64(t *testing.T) {
	cases := [][2]int64{{1, 1000}, {1000, 1000}, {1001, 1000}, {999999, 7}, {0, 3}}
	for _, c := range cases {
		n, d := big.NewInt(c[0]), big.NewInt(c[1])
		assert.Equal(t, CeilDiv(c[0], c[1]), CeilDivBig(n, d).Int64())
		assert.Equal(t, FloorDiv(c[0], c[1]), FloorDivBig(n, d).Int64())
	}
}
