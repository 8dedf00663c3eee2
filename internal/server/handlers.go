package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/vtable/internal/telemetry"
	"github.com/marmos91/vtable/pkg/blockcache"
	"github.com/marmos91/vtable/pkg/metrics"
)

// RowsResponse is the body of GET /rows. Cells are JSON numbers, strings or
// null. Null also stands for a cell whose block has not loaded yet; Pending
// counts those rows.
type RowsResponse struct {
	Start   int      `json:"start"`
	Total   int      `json:"total"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Pending int      `json:"pending"`
	Status  string   `json:"status"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		Version   string `json:"version,omitempty"`
		Source    string `json:"source,omitempty"`
		Rows      int    `json:"rows"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
		Tracing   bool   `json:"tracing"`
		Metrics   bool   `json:"metrics"`
	} `json:"data"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Source string           `json:"source,omitempty"`
	Cache  blockcache.Stats `json:"cache"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var resp HealthResponse
	resp.Status = "ok"
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.Data.Service = "vtable"
	resp.Data.Version = s.opts.Version
	resp.Data.Source = s.sourceName()
	resp.Data.Rows = s.model.RowCount()
	resp.Data.StartedAt = s.started.UTC().Format(time.RFC3339)
	uptime := time.Since(s.started).Round(time.Second)
	resp.Data.Uptime = uptime.String()
	resp.Data.UptimeSec = int64(uptime.Seconds())
	resp.Data.Tracing = telemetry.IsEnabled()
	resp.Data.Metrics = metrics.IsEnabled()
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatsResponse{
		Source: s.sourceName(),
		Cache:  s.model.Stats(),
	})
}

// rows serves GET /rows?start=N&count=N&wait=D. start is 0-based. The page
// becomes the model's visible range, and the handler waits up to wait for
// its blocks before answering with whatever is resident.
func (s *Server) rows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := intParam(q.Get("start"), 0)
	if err != nil || start < 0 {
		BadRequest(w, "start must be a non-negative integer")
		return
	}
	count, err := intParam(q.Get("count"), DefaultPageRows)
	if err != nil || count < 1 {
		BadRequest(w, "count must be a positive integer")
		return
	}
	count = min(count, s.opts.MaxPageRows)
	wait := s.opts.Wait
	if v := q.Get("wait"); v != "" {
		if wait, err = time.ParseDuration(v); err != nil || wait < 0 {
			BadRequest(w, "wait must be a non-negative duration")
			return
		}
	}

	m := s.model
	total := m.RowCount()
	resp := RowsResponse{Start: start, Total: total, Columns: m.HeaderNames(), Rows: [][]any{}}
	if total == 0 {
		resp.Status = m.LoadingStatus().String()
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	if start >= total {
		BadRequest(w, fmt.Sprintf("start %d is past the last row (%d rows)", start, total))
		return
	}

	end := start + min(count, total-start)
	m.SetVisibleRange(start, end-1)
	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		err := m.WaitVisible(ctx)
		cancel()
		switch {
		case errors.Is(err, blockcache.ErrNotLoaded):
			ServiceUnavailable(w, "rows could not be loaded from the source")
			return
		case errors.Is(err, blockcache.ErrClosed):
			ServiceUnavailable(w, "server is shutting down")
			return
		}
	}

	for row := start; row < end; row++ {
		cells := m.Row(row)
		raw := make([]any, len(cells))
		pending := false
		for c, v := range cells {
			pending = pending || v.IsPending()
			raw[c] = v.Raw()
		}
		if pending {
			resp.Pending++
		}
		resp.Rows = append(resp.Rows, raw)
	}
	resp.Status = m.LoadingStatus().String()
	WriteJSON(w, http.StatusOK, resp)
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
