package utils

import (
	"fmt"
	"time"
)

// ParseDuration safely parses duration string like "5m", falling back to
// def when d is empty or malformed
func ParseDuration(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return def
	}
	return duration
}

// FormatElapsed renders d as "DD HH:MM:SS.mmm".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	days := ms / (24 * 3600 * 1000)
	ms -= days * 24 * 3600 * 1000
	hours := ms / (3600 * 1000)
	ms -= hours * 3600 * 1000
	minutes := ms / (60 * 1000)
	ms -= minutes * 60 * 1000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d %02d:%02d:%02d.%03d", days, hours, minutes, seconds, ms)
}

// RowsPerSecond is the whole-number throughput of rows over d. Durations
// under a millisecond count as one millisecond.
func RowsPerSecond(rows int64, d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return rows * 1000 / ms
}
