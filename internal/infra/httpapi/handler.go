package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"quest_notifier/internal/app"

	"github.com/sirupsen/logrus"
)

type handler struct {
	svc        app.NotificationService
	db         Pinger
	jobTimeout time.Duration
	logger     *logrus.Entry
}

type jobResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Report  *app.DeadlineScanReport `json:"report,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) deadlineScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.jobTimeout)
	defer cancel()

	report, err := h.svc.ScanDeadlines(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Deadline scan via HTTP failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, jobResponse{
		Success: true,
		Message: "Deadline notification check completed",
		Report:  report,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
