package types

import (
	"math"
	"strconv"
	"strings"
)

// Numeric string handling follows the loose-typing rules filters were
// written against: leading whitespace and an optional sign are accepted,
// the longest numeric prefix is used, and anything else converts to 0.

const numericWhitespace = " \t\n\r\v\f"

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanNumeric locates the longest numeric prefix of s. It returns the
// bounds of that prefix and whether it has a fraction or an exponent.
func scanNumeric(s string) (start, end int, isFloat bool) {
	i := 0
	for i < len(s) && strings.IndexByte(numericWhitespace, s[i]) >= 0 {
		i++
	}
	start = i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
			isFloat = true
		}
	}
	if digits == 0 {
		return start, start, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
			isFloat = true
		}
	}
	return start, i, isFloat
}

// IsNumericString reports whether s is entirely a number, allowing
// surrounding whitespace.
func IsNumericString(s string) bool {
	start, end, _ := scanNumeric(s)
	if end == start {
		return false
	}
	return strings.TrimRight(s[end:], numericWhitespace) == ""
}

// StringToFloat converts the numeric prefix of s, or returns 0.
func StringToFloat(s string) float64 {
	start, end, _ := scanNumeric(s)
	if end == start {
		return 0
	}
	f, _ := strconv.ParseFloat(s[start:end], 64)
	return f
}

// StringToInt converts the numeric prefix of s, truncating fractions and
// saturating on overflow.
func StringToInt(s string) int64 {
	start, end, isFloat := scanNumeric(s)
	if end == start {
		return 0
	}
	if isFloat {
		f, _ := strconv.ParseFloat(s[start:end], 64)
		return FloatToInt(f)
	}
	i, err := strconv.ParseInt(s[start:end], 10, 64)
	if err != nil {
		if s[start] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return i
}

// FloatToInt truncates f toward zero. NaN and infinities become 0 and
// out-of-range values wrap modulo 2^64.
func FloatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	m := math.Mod(f, 1<<64)
	if m < 0 {
		m += 1 << 64
	}
	return int64(uint64(m))
}

// FormatFloat renders f with 14 significant digits, switching to
// exponent notation like 1.0E+25 for very large or small magnitudes.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}

	s := strconv.FormatFloat(f, 'G', 14, 64)
	mantissa, exp, found := strings.Cut(s, "E")
	if strings.Contains(mantissa, ".") {
		mantissa = strings.TrimRight(mantissa, "0")
		mantissa = strings.TrimSuffix(mantissa, ".")
	}
	if !found {
		return mantissa
	}
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "E" + string(sign) + digits
}
