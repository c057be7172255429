package map_reduce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StatsReducer computes count, extrema and mean of a product's prices.
type StatsReducer struct{}

func (r *StatsReducer) Reduce(key int32, values []int32) (Statistics, error) {
	if len(values) == 0 {
		return Statistics{}, fmt.Errorf("%w: reduce called with no values for key %d", ErrInternalInvariant, key)
	}

	stats := Statistics{Min: values[0], Max: values[0]}
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		stats.Sum += int64(v)
	}
	stats.Count = len(values)
	stats.Average = float64(stats.Sum) / float64(stats.Count)
	return stats, nil
}

// FormatAverage renders v the way the JVM prints a double: at least one
// fractional digit, and scientific notation outside [1e-3, 1e7).
func FormatAverage(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-3 || abs >= 1e7) {
		s := strconv.FormatFloat(v, 'E', -1, 64)
		mant, exp, _ := strings.Cut(s, "E")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		e, _ := strconv.Atoi(exp)
		return mant + "E" + strconv.Itoa(e)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
