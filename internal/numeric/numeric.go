// Package numeric holds money-agnostic float and integer helpers: rounding,
// pagination, clamping, averaging and a few small formulas. Every function
// validates its inputs and returns a *domain.ValidationError instead of
// producing NaN or a silently wrong value.
package numeric

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/pottycalc/internal/domain"
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RoundToDecimals rounds half away from zero to the given number of decimals.
func RoundToDecimals(value float64, decimals int) (float64, error) {
	if !finite(value) {
		return 0, domain.Invalidf("cannot round non-finite value %v", value)
	}
	if decimals < 0 {
		return 0, domain.Invalidf("decimals must be >= 0, got %d", decimals)
	}

	factor := math.Pow(10, float64(decimals))
	scaled := value * factor
	if !finite(factor) || !finite(scaled) {
		return 0, domain.Invalidf("rounding %v to %d decimals overflows", value, decimals)
	}
	return math.Round(scaled) / factor, nil
}

// Round2 is RoundToDecimals(value, 2).
func Round2(value float64) (float64, error) {
	return RoundToDecimals(value, 2)
}

// TotalPages returns how many pages of size limit hold total items.
func TotalPages(total, limit int) (int, error) {
	if total < 0 {
		return 0, domain.Invalidf("total must be >= 0, got %d", total)
	}
	if limit <= 0 {
		return 0, domain.Invalidf("limit must be > 0, got %d", limit)
	}
	return (total + limit - 1) / limit, nil
}

// Skip returns the number of items before the first item of a 1-based page.
func Skip(page, limit int) (int, error) {
	if page < 1 {
		return 0, domain.Invalidf("page must be >= 1, got %d", page)
	}
	if limit <= 0 {
		return 0, domain.Invalidf("limit must be > 0, got %d", limit)
	}
	return (page - 1) * limit, nil
}

// Clamp bounds value to [min, max].
func Clamp(value, min, max float64) (float64, error) {
	if !finite(value) || !finite(min) || !finite(max) {
		return 0, domain.Invalidf("clamp arguments must be finite: value=%v min=%v max=%v", value, min, max)
	}
	if min > max {
		return 0, domain.Invalidf("clamp min (%v) must not exceed max (%v)", min, max)
	}
	return math.Min(math.Max(value, min), max), nil
}

// Average returns the arithmetic mean of the values that parse to finite
// floats. Strings that do not parse are skipped. The mean is not rounded.
func Average[T float64 | string](values []T) (float64, error) {
	var sum float64
	var n int
	for _, v := range values {
		var f float64
		switch x := any(v).(type) {
		case float64:
			f = x
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				continue
			}
			f = parsed
		}
		if !finite(f) {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, domain.Invalidf("average requires at least one finite value, got %d inputs", len(values))
	}
	return sum / float64(n), nil
}

// ReadingTime estimates whole minutes to read text at wordsPerMinute.
// Non-empty text takes at least one minute.
func ReadingTime(text string, wordsPerMinute int) (int, error) {
	if wordsPerMinute <= 0 {
		return 0, domain.Invalidf("words per minute must be > 0, got %d", wordsPerMinute)
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0, nil
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute, nil
}

// BytesToMB converts a byte count to mebibytes rounded to 2 decimals.
func BytesToMB(bytes int64) (float64, error) {
	if bytes < 0 {
		return 0, domain.Invalidf("bytes must be >= 0, got %d", bytes)
	}
	return Round2(float64(bytes) / (1024 * 1024))
}

// ExponentialBackoff returns base * 2^attempt, capped at max.
func ExponentialBackoff(attempt int, base, max time.Duration) (time.Duration, error) {
	if attempt < 0 {
		return 0, domain.Invalidf("attempt must be >= 0, got %d", attempt)
	}
	if base <= 0 {
		return 0, domain.Invalidf("base delay must be > 0, got %s", base)
	}
	if max < base {
		return 0, domain.Invalidf("max delay (%s) must be >= base delay (%s)", max, base)
	}

	d := base
	for i := 0; i < attempt; i++ {
		if d >= max/2 {
			return max, nil
		}
		d *= 2
	}
	return min(d, max), nil
}
