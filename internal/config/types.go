package config

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Planner tunes diagnostics only; scheduling semantics have no knobs.
	Planner PlannerConfig `json:"planner"`

	Storage *StorageConfig `json:"storage,omitempty"`
	HTTP    *HTTPConfig    `json:"http,omitempty"`
	Jobs    []JobConfig    `json:"jobs"`
}

// HTTPConfig controls the optional status server (/healthz, /status,
// /metrics and, when Pprof is set, /debug/pprof/).
//
// A non-loopback Addr requires Token unless AllowInsecure is set.
type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PlannerConfig controls firing diagnostics.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - late_threshold: "500ms"
//   - late_warn_every: "5s"
//   - history_size: 200
type PlannerConfig struct {
	LateThreshold string `json:"late_threshold,omitempty"`
	LateWarnEvery string `json:"late_warn_every,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`
}

// StorageConfig controls the optional fire journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./periodic.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	// Retention drops journal rows older than this (sqlite). Empty keeps all.
	Retention string `json:"retention,omitempty"`
}

// JobConfig is one scheduled action. Exactly one of Message, Command or Unit
// is set.
//
// Schedule uses period.Parse syntax, e.g. "every:30s", "after:5m",
// "list:1s,5s", "*/5 * * * *" or "@hourly".
type JobConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`

	// Message is logged at INFO on every firing.
	Message string `json:"message,omitempty"`

	// Command is an argv run without a shell.
	Command []string `json:"command,omitempty"`
	// Timeout bounds one Command run or Unit operation. "0s" or empty means
	// no limit.
	Timeout string `json:"timeout,omitempty"`

	// Unit is a systemd unit ("nginx" means "nginx.service").
	Unit string `json:"unit,omitempty"`
	// UnitOp is start, stop or restart (default).
	UnitOp string `json:"unit_op,omitempty"`
}
