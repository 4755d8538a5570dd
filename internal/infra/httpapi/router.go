// Package httpapi exposes the job entry points and a health check over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"quest_notifier/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter creates the chi router with all middleware and routes.
func NewRouter(svc app.NotificationService, db Pinger, jobTimeout time.Duration, logger *logrus.Entry) *chi.Mux {
	h := &handler{svc: svc, db: db, jobTimeout: jobTimeout, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/deadline-scan", h.deadlineScan)
		r.Post("/deadline-scan", h.deadlineScan)
	})

	return r
}

func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("HTTP request")
		})
	}
}
