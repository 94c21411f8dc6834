// Package http is the export worker's admin server: health, readiness,
// metrics and a manual sync trigger.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lin/internal/credentials"
	"lin/internal/log"
	"lin/internal/storage"
	"lin/internal/worker"
)

// Syncer runs one backup export pass.
type Syncer interface {
	ProcessPending(ctx context.Context) (worker.PendingResult, error)
}

// LedgerStats reports on the export ledger.
type LedgerStats interface {
	ExportStats(ctx context.Context) (storage.ExportStats, error)
	Ping(ctx context.Context) error
}

var (
	_ Syncer      = (*worker.ExportWorker)(nil)
	_ LedgerStats = (*storage.SQLiteRepository)(nil)
)

// syncRequestsPerMinute caps manual sync triggers per client.
const syncRequestsPerMinute = 6

type Server struct {
	http.Server
	syncer  Syncer
	ledger  LedgerStats
	creds   credentials.Store
	logger  *log.Logger
	started time.Time
	limiter *limiter

	syncTimeout time.Duration
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, syncer Syncer, ledger LedgerStats, creds credentials.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
		syncer:      syncer,
		ledger:      ledger,
		creds:       creds,
		logger:      logger,
		started:     time.Now(),
		syncTimeout: 90 * time.Second,
		limiter:     newLimiter(syncRequestsPerMinute, time.Minute),
	}
	s.Handler = s.routes()
	s.RegisterOnShutdown(s.limiter.Stop)
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(log.Middleware(s.logger), securityHeaders)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.Handle("/sync", requireTrusted(s.limiter.middleware(http.HandlerFunc(s.handleSync)))).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}
