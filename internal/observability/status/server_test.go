package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtsup "periodic/internal/runtime/supervisor"
	logx "periodic/pkg/logx"
	"periodic/pkg/planner"
)

type fixedPlanner planner.Snapshot

func (f fixedPlanner) Snapshot() planner.Snapshot { return planner.Snapshot(f) }

func testSnapshot() fixedPlanner {
	return fixedPlanner{
		Started: true,
		Running: true,
		Queued:  1,
		Jobs:    []planner.JobInfo{{ID: "j1", Name: "heartbeat", Next: time.Unix(1700000000, 0), Fired: 4}},
		Fired:   7,
		Late:    2,
	}
}

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestStatusEndpoints(t *testing.T) {
	t.Parallel()

	sup := rtsup.New(context.Background())
	s := New(Config{}, testSnapshot(), sup, logx.Nop())
	h := s.Handler()

	code, body := get(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get(t, h, "/status", nil)
	require.Equal(t, http.StatusOK, code)
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, uint64(7), doc.Planner.Fired)
	require.Len(t, doc.Planner.Jobs, 1)
	assert.Equal(t, "heartbeat", doc.Planner.Jobs[0].Name)

	code, body = get(t, h, "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "periodic_planner_fired_total 7")
	assert.Contains(t, body, "periodic_planner_late_total 2")
	assert.Contains(t, body, `periodic_planner_job_fired_total{id="j1",job="heartbeat"} 4`)
	assert.Contains(t, body, "periodic_planner_loop_running 1")

	code, _ = get(t, h, "/debug/pprof/", nil)
	assert.Equal(t, http.StatusNotFound, code, "pprof is off by default")
}

func TestPprofRoutes(t *testing.T) {
	t.Parallel()

	s := New(Config{Pprof: true}, testSnapshot(), nil, logx.Nop())
	code, body := get(t, s.Handler(), "/debug/pprof/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "goroutine")
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	h := New(Config{Token: "s3cret"}, testSnapshot(), nil, logx.Nop()).Handler()

	code, _ := get(t, h, "/status", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, h, "/status?token=nope", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, h, "/status?token=s3cret", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, h, "/metrics", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, code)
}

func TestListenRefusesInsecureBind(t *testing.T) {
	t.Parallel()

	s := New(Config{Addr: "0.0.0.0:0"}, nil, nil, logx.Nop())
	assert.ErrorIs(t, s.Listen(), ErrInsecureBind)
	assert.Empty(t, s.Addr())
}

func TestServeUntilCanceled(t *testing.T) {
	t.Parallel()

	s := New(Config{Addr: "127.0.0.1:0"}, testSnapshot(), nil, logx.Nop())
	require.NoError(t, s.Listen())
	require.NotEmpty(t, s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	assert.True(t, isLoopbackAddr("127.0.0.1:6060"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.True(t, isLoopbackAddr("[::1]:1"))
	assert.False(t, isLoopbackAddr(":6060"))
	assert.False(t, isLoopbackAddr("10.0.0.1:80"))
	assert.False(t, isLoopbackAddr("garbage"))
}
