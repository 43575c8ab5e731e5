package config

import (
	"sort"
	"strings"

	logx "periodic/pkg/logx"
)

// JobDiff lists job names by how they changed between two configs.
type JobDiff struct {
	Added   []string
	Removed []string
	Changed []string
}

func (d JobDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) structured attrs for logging, and (3) the per-job diff.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, JobDiff) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Planner != newCfg.Planner {
		changed = append(changed, "planner")
		attrs = append(attrs,
			logx.String("planner.late_threshold", strings.TrimSpace(newCfg.Planner.LateThreshold)),
			logx.String("planner.late_warn_every", strings.TrimSpace(newCfg.Planner.LateWarnEvery)),
			logx.Int("planner.history_size", newCfg.Planner.HistorySize),
		)
	}

	// Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	var oH, nH HTTPConfig
	if oldCfg.HTTP != nil {
		oH = *oldCfg.HTTP
	}
	if newCfg.HTTP != nil {
		nH = *newCfg.HTTP
	}
	if oH != nH {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", nH.Enabled),
			logx.String("http.addr", strings.TrimSpace(nH.Addr)),
			logx.Bool("http.token_set", nH.Token != ""),
			logx.Bool("http.pprof", nH.Pprof),
		)
	}

	jd := diffJobs(oldCfg.Jobs, newCfg.Jobs)
	if !jd.Empty() {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.added", len(jd.Added)),
			logx.Int("jobs.removed", len(jd.Removed)),
			logx.Int("jobs.changed", len(jd.Changed)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jd
}

func diffJobs(oldJobs, newJobs []JobConfig) JobDiff {
	index := func(js []JobConfig) map[string]uint64 {
		m := make(map[string]uint64, len(js))
		for _, j := range js {
			m[strings.TrimSpace(j.Name)] = hashJSON(j)
		}
		return m
	}
	o := index(oldJobs)
	n := index(newJobs)

	var d JobDiff
	for name, h := range n {
		prev, ok := o[name]
		switch {
		case !ok:
			d.Added = append(d.Added, name)
		case prev != h:
			d.Changed = append(d.Changed, name)
		}
	}
	for name := range o {
		if _, ok := n[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}
