package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/pkg/metrics"
)

// Handler returns the router serving every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/stats", s.stats)
	r.Get("/rows", s.rows)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no such endpoint: "+r.URL.Path)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		// Probes and scrapes are frequent
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			logger.Debug("HTTP request completed", logArgs...)
			return
		}
		if ww.Status() >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", logArgs...)
			return
		}
		logger.Info("HTTP request completed", logArgs...)
	})
}
