// Package mono provides a cheap monotonic clock source, used to time
// stats spans (stats.Tracker.Span).
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start. It is strictly
// increasing and immune to wall-clock adjustments, unlike time.Now().UnixNano().
func NanoTime() int64 { return time.Since(start).Nanoseconds() }

// Since is a convenience wrapper returning the duration elapsed since a
// NanoTime() reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
