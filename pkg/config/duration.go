package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string with support for days (d),
// which time.ParseDuration lacks. Examples: "30d", "12h", "5m", "30s".
// Anything that is not a plain <number><unit> pair falls back to
// standard Go duration parsing.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 {
		return time.ParseDuration(trimmed)
	}

	unit := trimmed[len(trimmed)-1]
	value, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil {
		// Compound forms like "1h30m" are handled by the stdlib.
		return time.ParseDuration(trimmed)
	}
	if value < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}

	switch unit {
	case 's':
		return time.Duration(value) * time.Second, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.ParseDuration(trimmed)
	}
}
