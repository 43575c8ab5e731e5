package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"periodic/internal/config"
	"periodic/internal/unitctl"
	logx "periodic/pkg/logx"
)

// maxOutputLog bounds how much command output ends up in one log line.
const maxOutputLog = 512

// defaultUnitTimeout bounds a unit operation when the job sets no timeout.
const defaultUnitTimeout = 15 * time.Second

// unitRunner is the part of *unitctl.Controller a unit job needs.
type unitRunner interface {
	Do(ctx context.Context, op unitctl.Op, unit string) error
}

// unitSource hands out the shared unit controller, dialing on first use.
type unitSource func(ctx context.Context) (unitRunner, error)

// newAction turns a job's configured action into a planner callback.
//
// ctx is the app run context: canceling it kills commands still running.
func newAction(ctx context.Context, jc config.JobConfig, log logx.Logger, units unitSource) (func(), error) {
	log = log.With(logx.String("job", jc.Name))

	if msg := strings.TrimSpace(jc.Message); msg != "" {
		return func() { log.Info(msg) }, nil
	}
	timeout, err := config.ParseDurationField("jobs."+jc.Name+".timeout", jc.Timeout)
	if err != nil {
		return nil, err
	}
	if unit := strings.TrimSpace(jc.Unit); unit != "" {
		return newUnitAction(ctx, jc, unit, timeout, log, units)
	}
	if len(jc.Command) == 0 || strings.TrimSpace(jc.Command[0]) == "" {
		return nil, fmt.Errorf("job %q: no action", jc.Name)
	}
	argv := append([]string(nil), jc.Command...)

	return func() {
		start := time.Now()
		out, err := runCommand(ctx, argv, timeout)
		took := time.Since(start)
		if err != nil {
			log.Warn("command failed",
				logx.String("cmd", argv[0]),
				logx.Duration("took", took),
				logx.Err(err),
				logx.String("output", tail(out, maxOutputLog)),
			)
			return
		}
		log.Debug("command finished", logx.String("cmd", argv[0]), logx.Duration("took", took), logx.Int("output_bytes", len(out)))
	}, nil
}

func newUnitAction(ctx context.Context, jc config.JobConfig, unit string, timeout time.Duration, log logx.Logger, units unitSource) (func(), error) {
	op, err := unitctl.ParseOp(jc.UnitOp)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", jc.Name, err)
	}
	if units == nil {
		return nil, fmt.Errorf("job %q: unit jobs are not available", jc.Name)
	}
	if timeout <= 0 {
		timeout = defaultUnitTimeout
	}
	unit = unitctl.UnitName(unit)

	return func() {
		opCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		start := time.Now()
		ctl, err := units(opCtx)
		if err == nil {
			err = ctl.Do(opCtx, op, unit)
		}
		if err != nil {
			log.Warn("unit operation failed", logx.String("unit", unit), logx.String("op", string(op)), logx.Err(err))
			return
		}
		log.Info("unit operation done", logx.String("unit", unit), logx.String("op", string(op)), logx.Duration("took", time.Since(start)))
	}, nil
}

// runCommand executes argv without a shell and returns combined output.
// timeout <= 0 means no limit beyond ctx.
func runCommand(ctx context.Context, argv []string, timeout time.Duration) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return buf.Bytes(), err
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return "…" + s[i:]
}
