package utils

import (
	"time"
)

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	return ParseDurationOr(d, 5*time.Minute)
}

// ParseDurationOr parses d, falling back to def when d is empty, invalid or
// not positive.
func ParseDurationOr(d string, def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return def
	}
	return duration
}
