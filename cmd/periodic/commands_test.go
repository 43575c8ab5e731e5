package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periodic/internal/storage"
	logx "periodic/pkg/logx"
)

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "jobs": [
    {"name": "nightly", "schedule": "@daily", "command": ["/bin/true"]},
    {"name": "hello", "schedule": "after:1m", "message": "hi"}
  ]
}`), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check", "--config", path, "-n", "2"})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(t, s, "JOB")
	assert.Contains(t, s, "nightly")
	assert.Contains(t, s, "cron")
	assert.Contains(t, s, `log "hi"`)
}

func TestCheckCommandRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jobs": [], "extra": true}`), 0o600))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "--config", path})
	assert.Error(t, cmd.Execute())
}

func TestHistoryCommandWithoutStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jobs": [{"name": "a", "schedule": "every:1m", "message": "m"}]}`), 0o600))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--config", path})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage is not configured")
}

func TestCheckCommandRejectsBadCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jobs": [{"name": "a", "schedule": "every:1m", "message": "m"}]}`), 0o600))

	for _, n := range []string{"0", "-1"} {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"check", "--config", path, "-n", n})
		err := cmd.Execute()
		require.Error(t, err, n)
		assert.Contains(t, err.Error(), "--count must be >= 1")
	}
}

func TestHistoryCommandUsesDaemonJournalPath(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Same default location the daemon journals to when storage.path is unset.
	st, err := storage.Open(storage.Config{Driver: "file", Path: "./periodic"}, logx.Nop())
	require.NoError(t, err)
	at := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, st.AppendFire(context.Background(), storage.FireRecord{
			At:         at.Add(time.Duration(i) * time.Minute),
			JobID:      "id-1",
			Job:        "nightly",
			Occurrence: i,
			Due:        at.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, st.Close())

	path := filepath.Join(dir, "periodic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: file
jobs:
  - name: nightly
    schedule: "@daily"
    message: m
`), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"history", "--config", path, "-n", "2"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, out.String())
	assert.Contains(t, lines[0], "OCCURRENCE")
	newest := strings.Fields(lines[1])
	require.Len(t, newest, 4)
	assert.Equal(t, "nightly", newest[1])
	assert.Equal(t, "3", newest[2])
	assert.Equal(t, "2", strings.Fields(lines[2])[2])
}
