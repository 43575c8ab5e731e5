package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "periodic/pkg/logx"
)

func record(job string, occ uint64) FireRecord {
	due := time.Date(2030, 1, 1, 0, 0, int(occ), 0, time.UTC)
	return FireRecord{
		At:         due.Add(3 * time.Millisecond),
		JobID:      "id-" + job,
		Job:        job,
		Occurrence: occ,
		Due:        due,
		LateMS:     3,
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, d := range []string{"", "none", " NONE ", "off"} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}

	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	assert.Error(t, err)
}

func TestFileStoreAppendsJSONLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "journal")}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, st.AppendFire(ctx, record("tick", i)))
	}
	require.NoError(t, st.Close())

	f, err := os.Open(filepath.Join(dir, "journal.fires.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []FireRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r FireRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[2].Occurrence)
	assert.True(t, got[0].Due.Equal(record("tick", 1).Due))
}

func TestFileStoreRecent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fires.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, st.AppendFire(ctx, record("tick", i)))
	}

	recent, err := st.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{recent[0].Occurrence, recent[1].Occurrence, recent[2].Occurrence})

	all, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(5), all[0].Occurrence)
	assert.Equal(t, uint64(1), all[4].Occurrence)
}

func TestFileStoreClosed(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	assert.ErrorIs(t, st.AppendFire(context.Background(), record("x", 1)), ErrClosed)
}

func TestSQLiteStorePrunesByRetention(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "periodic.db"), Retention: time.Hour}, logx.New(&logs, "debug"))
	require.NoError(t, err)
	defer st.Close()
	sq := st.(*sqliteStore)
	sq.pruneEvery = 4

	ctx := context.Background()
	old := record("old", 1)
	old.At = time.Now().Add(-2 * time.Hour)
	require.NoError(t, st.AppendFire(ctx, old))
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, st.AppendFire(ctx, record("fresh", i)))
	}

	recent, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for _, r := range recent {
		assert.Equal(t, "fresh", r.Job)
	}
	assert.Contains(t, logs.String(), `"rows":1`)
}

func TestSQLiteStoreClosed(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "periodic.db")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.AppendFire(context.Background(), record("x", 1)))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	assert.ErrorIs(t, st.AppendFire(context.Background(), record("x", 2)), ErrClosed)
	_, err = st.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "periodic.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for i := uint64(1); i <= 4; i++ {
		require.NoError(t, st.AppendFire(ctx, record("backup", i)))
	}

	recent, err := st.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(4), recent[0].Occurrence)
	assert.Equal(t, "backup", recent[0].Job)
	assert.Equal(t, "id-backup", recent[0].JobID)
	assert.Equal(t, int64(3), recent[0].LateMS)
	assert.True(t, recent[0].Due.Equal(record("backup", 4).Due))
}
