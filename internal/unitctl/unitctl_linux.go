//go:build linux

package unitctl

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Controller holds one system bus connection shared by all unit jobs.
type Controller struct {
	mu   sync.RWMutex
	conn *dbus.Conn
}

// Dial connects to the system instance of systemd.
func Dial(ctx context.Context) (*Controller, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Controller{conn: conn}, nil
}

// Do runs op on unit and waits for the systemd job to finish or ctx to end.
func (c *Controller) Do(ctx context.Context, op Op, unit string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return ErrClosed
	}
	unit = UnitName(unit)

	done := make(chan string, 1)
	var err error
	switch op {
	case OpStart:
		_, err = c.conn.StartUnitContext(ctx, unit, "replace", done)
	case OpStop:
		_, err = c.conn.StopUnitContext(ctx, unit, "replace", done)
	case OpRestart:
		_, err = c.conn.RestartUnitContext(ctx, unit, "replace", done)
	default:
		return fmt.Errorf("unknown unit operation %q", op)
	}
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, unit, err)
	}

	select {
	case res := <-done:
		return jobResult(op, unit, res)
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", op, unit, ctx.Err())
	}
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
