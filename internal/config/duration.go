package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string. Empty means zero; negative
// values are rejected. Errors carry the field path.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Defaults applied by the daemon when a planner field is omitted.
const (
	DefaultLateThreshold = 500 * time.Millisecond
	DefaultLateWarnEvery = 5 * time.Second
	DefaultHistorySize   = 200
)

// PlannerSettings is PlannerConfig with defaults applied.
type PlannerSettings struct {
	LateThreshold time.Duration
	LateWarnEvery time.Duration
	HistorySize   int
}

func (c PlannerConfig) Settings() (PlannerSettings, error) {
	late, err := ParseDurationOrDefault("planner.late_threshold", c.LateThreshold, DefaultLateThreshold)
	if err != nil {
		return PlannerSettings{}, err
	}
	every, err := ParseDurationOrDefault("planner.late_warn_every", c.LateWarnEvery, DefaultLateWarnEvery)
	if err != nil {
		return PlannerSettings{}, err
	}
	size := c.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}
	return PlannerSettings{LateThreshold: late, LateWarnEvery: every, HistorySize: size}, nil
}
