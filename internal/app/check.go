package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"periodic/internal/config"
	"periodic/internal/unitctl"
	"periodic/pkg/period"
)

// JobPreview is the dry-run view of one configured job.
type JobPreview struct {
	Name     string
	Schedule string
	Kind     period.Kind
	Action   string
	Next     []time.Time
}

// Check loads and validates the config at path and previews the next n
// instants of every job, as if the daemon started at clk.Now().
func Check(path string, n int, clk clock.Clock) ([]JobPreview, error) {
	cfg, err := config.NewConfigManager(path).Load()
	if err != nil {
		return nil, err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	}
	if _, err := mapPlannerOptions(cfg); err != nil {
		return nil, err
	}

	f := period.From(clk)
	out := make([]JobPreview, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		sp, err := period.ParseSpec(jc.Schedule)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", jc.Name, err)
		}
		next, err := f.Preview(jc.Schedule, n)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", jc.Name, err)
		}
		out = append(out, JobPreview{
			Name:     strings.TrimSpace(jc.Name),
			Schedule: jc.Schedule,
			Kind:     sp.Kind,
			Action:   describeAction(jc),
			Next:     next,
		})
	}
	return out, nil
}

func describeAction(jc config.JobConfig) string {
	if unit := strings.TrimSpace(jc.Unit); unit != "" {
		op, err := unitctl.ParseOp(jc.UnitOp)
		if err != nil {
			op = unitctl.Op(jc.UnitOp)
		}
		return fmt.Sprintf("unit %s %s", op, unitctl.UnitName(unit))
	}
	if len(jc.Command) > 0 {
		s := "exec " + strings.Join(jc.Command, " ")
		if t := strings.TrimSpace(jc.Timeout); t != "" {
			s += " (timeout " + t + ")"
		}
		return s
	}
	return fmt.Sprintf("log %q", strings.TrimSpace(jc.Message))
}
