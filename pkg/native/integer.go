package native

import (
	"math"
	"strconv"
	"strings"
)

// NativeInteger represents a java.lang.Integer.
type NativeInteger struct {
	Value int32
}

// IntegerValueOf creates a NativeInteger (boxing).
func IntegerValueOf(v int32) *NativeInteger {
	return &NativeInteger{Value: v}
}

// IntegerIntValue returns the int32 value of a NativeInteger (unboxing).
func IntegerIntValue(ni *NativeInteger) int32 {
	return ni.Value
}

// HashKey makes boxed integers with equal values collide as map keys.
func (ni *NativeInteger) HashKey() interface{} {
	return ni.Value
}

func (ni *NativeInteger) String() string {
	return strconv.Itoa(int(ni.Value))
}

// ParseInt implements Integer.parseInt for radix 10.
func ParseInt(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// FormatDouble renders a double the way Double.toString does for the
// common cases: at least one fractional digit, scientific notation outside
// [1e-3, 1e7).
func FormatDouble(f float64) string {
	return formatFloat(f, 64)
}

// FormatFloat renders a float the way Float.toString does.
func FormatFloat(f float32) string {
	return formatFloat(float64(f), 32)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, bits)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	exp = strings.TrimPrefix(exp, "+")
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(strings.TrimPrefix(exp, "-"), "0")
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}
