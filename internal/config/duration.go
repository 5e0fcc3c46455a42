package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a duration out of config, substituting
// defaultValue for an empty or whitespace-only value. Timeouts and lead
// windows are kept as strings in the file so they read naturally ("45m").
func DurationOrDefault(value, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration is empty and has no default")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", candidate, err)
	}
	return d, nil
}
