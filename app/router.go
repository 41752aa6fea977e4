package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/mg4dash/api/envelope"
	"github.com/kilianp07/mg4dash/api/route"
	apisession "github.com/kilianp07/mg4dash/api/session"
	"github.com/kilianp07/mg4dash/infra/logger"
)

// Health is the /healthz body.
type Health struct {
	Status    string `json:"status"`
	Telemetry string `json:"telemetry"`
	Connected bool   `json:"connected"`
}

func (s *Service) routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(envelope.RequestID)
	r.Use(accessLog(logger.New("http")))
	r.Use(envelope.Recover(s.log))

	r.Handle(route.Path, route.NewHandler(s.Planner, s.Sink, logger.New("gateway")))
	sess := apisession.NewHandler(s.Session, s.Planner, s.pricing, logger.New("session-api"))
	r.With(envelope.CORS).Mount(apisession.Path, sess.Routes())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		envelope.JSON(w, http.StatusOK, Health{
			Status:    "ok",
			Telemetry: s.Source.Name(),
			Connected: s.Session.Snapshot().IsConnected,
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed_ms": time.Since(start).Milliseconds(),
				"request_id": r.Header.Get(envelope.RequestIDHeader),
			})
		})
	}
}
