// Package util contains misc internal utilities.
package util

import (
	"math"
	"time"
	"unicode"
)

// AllElementsNumbers returns true if s is non-empty and holds only digits and
// at most one decimal point, e.g. "25" or "2.5" but not "25ms"
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return dots <= 1
}

// Clamp limits input to [low, high]
func Clamp(input, low, high float64) float64 {
	return math.Max(low, math.Min(input, high))
}

// SecsToDuration converts a number of seconds to a Duration,
// rounding to the nearest nanosecond
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}

// MicrosToDuration converts microseconds, the unit of ExposureTime, to a Duration
func MicrosToDuration(us float64) time.Duration {
	return time.Duration(math.Round(us * 1e3))
}

// DurationToMicros is the inverse of MicrosToDuration
func DurationToMicros(d time.Duration) float64 {
	return float64(d) / 1e3
}
