package utils

import (
	"fmt"
	"math"
	"strconv"
)

// FormatID renders an identifier decoded from JSON. Whole-number float64
// values print as plain integers, never in exponent form.
func FormatID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
