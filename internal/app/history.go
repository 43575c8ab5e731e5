package app

import (
	"context"
	"errors"

	"periodic/internal/config"
	"periodic/internal/storage"
	logx "periodic/pkg/logx"
)

var (
	ErrStorageNotConfigured = errors.New("storage is not configured")
	ErrStorageDisabled      = errors.New("storage is disabled")
)

// History loads the config at path and returns the n most recent journaled
// firings, newest first. The journal is resolved exactly as the daemon does.
func History(ctx context.Context, path string, n int) ([]storage.FireRecord, error) {
	cfg, err := config.NewConfigManager(path).Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage == nil {
		return nil, ErrStorageNotConfigured
	}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrStorageDisabled
	}
	st, err := storage.Open(sc, logx.Nop())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStorageDisabled
	}
	defer st.Close()
	return st.Recent(ctx, n)
}
