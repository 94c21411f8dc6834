package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lin/internal/credentials"
	"lin/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the database and that a login is available to call the backend with.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)
	fail := func(name, reason string) {
		checks[name] = reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := s.ledger.Ping(ctx); err != nil {
		fail("database", "failed: "+err.Error())
	} else {
		checks["database"] = "ok"
	}

	creds, err := s.creds.Get(ctx)
	switch {
	case errors.Is(err, credentials.ErrNoCredentials):
		fail("credentials", "missing: run lin login")
	case err != nil:
		fail("credentials", "failed: "+err.Error())
	case creds.AccessExpired(time.Now()) && !creds.CanRefresh(time.Now()):
		fail("credentials", "expired: run lin login")
	default:
		checks["credentials"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.ExportStats(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to read export stats", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read export stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSync runs a backup export pass and reports what it did. Partial
// failures still return the counts.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.syncTimeout)
	defer cancel()

	logger := log.FromContext(r.Context())
	res, err := s.syncer.ProcessPending(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Manual sync failed",
			log.NewFields().WithOperation(log.OpSync).WithError(err).ToSlice()...)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"result": res,
			"error":  err.Error(),
		})
		return
	}
	logger.InfoContext(ctx, "Manual sync completed",
		"checked", res.Checked, "exported", res.Exported)
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
