package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"periodic/internal/unitctl"
	logx "periodic/pkg/logx"
	"periodic/pkg/period"
)

var ErrNoJobs = errors.New("config: no jobs configured")

// Validate checks everything that can be checked without side effects.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error

	if _, err := logx.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	if _, err := ParseDurationField("planner.late_threshold", cfg.Planner.LateThreshold); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("planner.late_warn_every", cfg.Planner.LateWarnEvery); err != nil {
		errs = append(errs, err)
	}
	if cfg.Planner.HistorySize < 0 {
		errs = append(errs, errors.New("planner.history_size: must be >= 0"))
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "off", "disabled", "file", "sqlite", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
		if _, err := ParseDurationField("storage.retention", s.Retention); err != nil {
			errs = append(errs, err)
		}
	}

	if h := cfg.HTTP; h != nil && h.Enabled && strings.TrimSpace(h.Addr) != "" {
		if _, _, err := net.SplitHostPort(strings.TrimSpace(h.Addr)); err != nil {
			errs = append(errs, fmt.Errorf("http.addr: %w", err))
		}
	}

	if len(cfg.Jobs) == 0 {
		errs = append(errs, ErrNoJobs)
	}
	seen := make(map[string]int, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		errs = append(errs, validateJob(fmt.Sprintf("jobs[%d]", i), j, seen, i)...)
	}
	return errors.Join(errs...)
}

func validateJob(path string, j JobConfig, seen map[string]int, i int) []error {
	var errs []error
	name := strings.TrimSpace(j.Name)
	switch {
	case name == "":
		errs = append(errs, fmt.Errorf("%s.name: required", path))
	default:
		if prev, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("%s.name: %q already used by jobs[%d]", path, name, prev))
		} else {
			seen[name] = i
		}
	}

	if _, err := period.ParseSpec(j.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("%s.schedule: %w", path, err))
	}

	actions := 0
	if strings.TrimSpace(j.Message) != "" {
		actions++
	}
	if len(j.Command) > 0 {
		actions++
		if strings.TrimSpace(j.Command[0]) == "" {
			errs = append(errs, fmt.Errorf("%s.command: empty program", path))
		}
	}
	if strings.TrimSpace(j.Unit) != "" {
		actions++
	}
	switch {
	case actions > 1:
		errs = append(errs, fmt.Errorf("%s: message, command and unit are mutually exclusive", path))
	case actions == 0:
		errs = append(errs, fmt.Errorf("%s: one of message, command or unit is required", path))
	}
	if strings.TrimSpace(j.UnitOp) != "" {
		if strings.TrimSpace(j.Unit) == "" {
			errs = append(errs, fmt.Errorf("%s.unit_op: set without unit", path))
		} else if _, err := unitctl.ParseOp(j.UnitOp); err != nil {
			errs = append(errs, fmt.Errorf("%s.unit_op: %w", path, err))
		}
	}

	if _, err := ParseDurationField(path+".timeout", j.Timeout); err != nil {
		errs = append(errs, err)
	}
	return errs
}
