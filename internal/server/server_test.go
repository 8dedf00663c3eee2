package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/loader"
	"github.com/marmos91/vtable/pkg/synthetic"
)

func newTestServer(t *testing.T, exec loader.Executor, rows int) (*Server, *blockcache.Model) {
	t.Helper()
	m := blockcache.New(blockcache.Options{Executor: exec, BlockSize: 100})
	t.Cleanup(m.Close)
	if rows > 0 {
		m.SetDataSource(synthetic.New(rows, 3))
	}
	s := New(Options{Listen: "127.0.0.1:0", MaxPageRows: 50, Version: "test"}, m)
	s.SetSource("synthetic")
	return s, m
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestRows(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 1000)
	src := synthetic.New(1000, 3)

	var resp RowsResponse
	rec := get(t, s.Handler(), "/rows?start=250&count=3", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, 250, resp.Start)
	assert.Equal(t, 1000, resp.Total)
	assert.Equal(t, src.HeaderRow(), resp.Columns)
	require.Len(t, resp.Rows, 3)
	assert.Zero(t, resp.Pending)
	assert.Equal(t, "idle", resp.Status)

	// JSON numbers decode as float64.
	assert.Equal(t, float64(251), resp.Rows[0][0])
}

func TestRowsCapsCountAndClampsEnd(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 1000)

	var resp RowsResponse
	get(t, s.Handler(), "/rows?start=0&count=500", &resp)
	assert.Len(t, resp.Rows, 50, "count is capped at MaxPageRows")

	get(t, s.Handler(), "/rows?start=990&count=50", &resp)
	assert.Len(t, resp.Rows, 10)
}

func TestRowsPendingWithoutWait(t *testing.T) {
	exec := &loader.Deferred{}
	s, m := newTestServer(t, exec, 1000)

	var resp RowsResponse
	rec := get(t, s.Handler(), "/rows?start=0&count=5&wait=0s", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, resp.Pending)
	assert.Equal(t, []any{nil, nil, nil}, resp.Rows[0])
	assert.Equal(t, "loading_visible", resp.Status)

	exec.Run()
	assert.Equal(t, blockcache.Idle, m.LoadingStatus())
	get(t, s.Handler(), "/rows?start=0&count=5&wait=0s", &resp)
	assert.Zero(t, resp.Pending)
}

func TestRowsBadRequests(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 1000)

	for _, target := range []string{
		"/rows?start=-1",
		"/rows?start=abc",
		"/rows?count=0",
		"/rows?wait=soon",
		"/rows?start=1000",
	} {
		rec := get(t, s.Handler(), target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"), target)

		var p Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, http.StatusBadRequest, p.Status)
		assert.NotEmpty(t, p.Detail)
	}
}

func TestRowsWithoutSource(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 0)

	var resp RowsResponse
	rec := get(t, s.Handler(), "/rows", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Rows)
}

func TestHealthAndStats(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 1000)

	var health HealthResponse
	get(t, s.Handler(), "/healthz", &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "vtable", health.Data.Service)
	assert.Equal(t, "test", health.Data.Version)
	assert.Equal(t, "synthetic", health.Data.Source)
	assert.Equal(t, 1000, health.Data.Rows)

	get(t, s.Handler(), "/rows?start=0&count=10", nil)

	var stats StatsResponse
	get(t, s.Handler(), "/stats", &stats)
	assert.Equal(t, "synthetic", stats.Source)
	assert.Equal(t, 1000, stats.Cache.RowCount)
	assert.Equal(t, 10, stats.Cache.TotalBlocks)
	assert.Positive(t, stats.Cache.Resident)
}

func TestUnknownPath(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 10)

	rec := get(t, s.Handler(), "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeLifecycle(t *testing.T) {
	s, _ := newTestServer(t, &loader.Synchronous{}, 100)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/healthz", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, s.Stop(context.Background()), "Stop is idempotent")
}
