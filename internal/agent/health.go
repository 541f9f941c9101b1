// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
)

// StatusProvider reports the agent health snapshot.
type StatusProvider interface {
	Status() Status
}

// NewHealthRouter serves GET /health (200 while healthy, 503 once retries
// are exhausted) and GET /status (the full snapshot).
func NewHealthRouter(p StatusProvider, log logrus.FieldLogger) chi.Router {
	if log == nil {
		log = logging.Discard()
	}
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s := p.Status()
		body := map[string]any{
			"status":               "ok",
			"phase":                s.Phase,
			"consecutive_failures": s.ConsecutiveFailures,
		}
		code := http.StatusOK
		if s.Fatal {
			body["status"] = "failing"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, body, log)
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, p.Status(), log)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any, log logrus.FieldLogger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("json encode failed")
	}
}

// HealthServer exposes the health router on an address.
type HealthServer struct {
	srv *http.Server
	log logrus.FieldLogger
}

// NewHealthServer creates a server for p on addr.
func NewHealthServer(addr string, p StatusProvider, log logrus.FieldLogger) *HealthServer {
	if log == nil {
		log = logging.Discard()
	}
	return &HealthServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHealthRouter(p, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start listens in the background.
func (h *HealthServer) Start() {
	go func() {
		h.log.WithField("addr", h.srv.Addr).Info("health server listening")
		if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.WithError(err).Error("health server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
