package app

import (
	"fmt"
	"strings"
	"time"

	"periodic/internal/config"
	"periodic/internal/observability/status"
	"periodic/internal/storage"
	logx "periodic/pkg/logx"
	"periodic/pkg/planner"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "none", "off", "disabled":
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	retention, err := config.ParseDurationField("storage.retention", sc.Retention)
	if err != nil {
		return storage.Config{}, false, err
	}

	switch driver {
	case "file":
		if path == "" {
			path = "./periodic"
		}
		return storage.Config{Driver: "file", Path: path, Retention: retention}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, Retention: retention}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapPlannerOptions(cfg *config.Config) ([]planner.Option, error) {
	var pc config.PlannerConfig
	if cfg != nil {
		pc = cfg.Planner
	}
	s, err := pc.Settings()
	if err != nil {
		return nil, err
	}
	return []planner.Option{
		planner.WithLateThreshold(s.LateThreshold),
		planner.WithLateWarnEvery(s.LateWarnEvery),
		planner.WithHistorySize(s.HistorySize),
	}, nil
}

func mapHTTPConfig(cfg *config.Config) (status.Config, bool) {
	if cfg == nil || cfg.HTTP == nil || !cfg.HTTP.Enabled {
		return status.Config{}, false
	}
	h := cfg.HTTP
	return status.Config{
		Addr:          strings.TrimSpace(h.Addr),
		Token:         strings.TrimSpace(h.Token),
		AllowInsecure: h.AllowInsecure,
		Pprof:         h.Pprof,
	}, true
}
