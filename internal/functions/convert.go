package functions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
)

// ToInt converts integers, integral floats and numeric strings.
func ToInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d is out of range", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		// float64(math.MaxInt64) rounds up to 2^63
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		return int64(n), nil
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ToInt(f)
		}
		return 0, fmt.Errorf("%q is not a number", n)
	case core.Reference:
		return n.ID, nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", TypeName(v))
	}
}

// ToFloat converts numbers and numeric strings.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", TypeName(v))
	}
}

// ToString renders scalars as strings; nil is an error.
func ToString(v any) (string, error) {
	if v == nil {
		return "", fmt.Errorf("expected a string, got None")
	}
	return core.FormatValue(v), nil
}

// ToTime converts time values and ISO dates ("2024-03-01") or timestamps.
func ToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.DateOnly, time.RFC3339, time.DateTime} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a date", t)
	default:
		return time.Time{}, fmt.Errorf("expected a date, got %s", TypeName(v))
	}
}

// Truthy follows expression truthiness: zero values and empty strings are false.
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0
	case string:
		return b != ""
	default:
		return true
	}
}

// TypeName names a value's type the way recipe authors see it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case bool:
		return "bool"
	case int, int32, int64, uint64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case time.Time:
		return "date"
	case core.Reference:
		return "reference"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}
