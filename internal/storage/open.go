// Package storage journals job firings for operators.
//
// It never restores jobs: the journal is an audit trail, not a queue.
package storage

import (
	"context"
	"fmt"
	"strings"

	logx "periodic/pkg/logx"
)

// Store is the minimal journal API used by the daemon.
type Store interface {
	AppendFire(ctx context.Context, r FireRecord) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]FireRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none", "off", "disabled":
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
