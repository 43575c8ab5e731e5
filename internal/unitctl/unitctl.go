// Package unitctl starts, stops and restarts systemd units over D-Bus for
// scheduled unit jobs.
package unitctl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupported = errors.New("unitctl: unsupported OS (linux only)")
	ErrClosed      = errors.New("unitctl: systemd connection is closed")
)

// Op is a unit operation.
type Op string

const (
	OpStart   Op = "start"
	OpStop    Op = "stop"
	OpRestart Op = "restart"
)

// ParseOp maps config text to an Op. Empty means restart.
func ParseOp(s string) (Op, error) {
	switch Op(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpRestart:
		return OpRestart, nil
	case OpStart:
		return OpStart, nil
	case OpStop:
		return OpStop, nil
	default:
		return "", fmt.Errorf("unknown unit operation %q (use start, stop or restart)", s)
	}
}

// UnitName appends ".service" to bare names; names with a unit suffix
// (".timer", ".socket", ...) are kept.
func UnitName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		switch name[i+1:] {
		case "service", "socket", "device", "mount", "automount", "swap", "target", "path", "timer", "slice", "scope":
			return name
		}
	}
	return name + ".service"
}

// jobResult turns a systemd job result string into an error.
func jobResult(op Op, unit, result string) error {
	if result == "done" {
		return nil
	}
	return fmt.Errorf("%s %s: job %s", op, unit, result)
}
