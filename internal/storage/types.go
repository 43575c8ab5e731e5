package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal next to Path
//   - "sqlite": SQLite database file (pure Go driver)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// Retention drops records older than this (sqlite only). 0 keeps everything.
	Retention time.Duration
}

// FireRecord is one journaled firing. Keep it compact and schema-stable.
type FireRecord struct {
	At         time.Time `json:"at"`
	JobID      string    `json:"job_id"`
	Job        string    `json:"job"`
	Occurrence uint64    `json:"occurrence"`
	Due        time.Time `json:"due"`
	LateMS     int64     `json:"late_ms"`
}
