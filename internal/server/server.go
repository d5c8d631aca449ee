// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartport-assistant/internal/common/auth"
	"smartport-assistant/internal/common/config"
	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/history"
	"smartport-assistant/internal/orchestrator"
)

// readyProbeTimeout bounds the combined dependency pings of one /ready call.
const readyProbeTimeout = 5 * time.Second

// Probes holds the backend clients the readiness endpoint pings. Nil entries
// are skipped: a deployment running without that backend is still ready.
type Probes struct {
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
}

// Server is the HTTP transport in front of the conversation pipeline. It
// owns request validation, identity resolution and history persistence; the
// pipeline itself stays transport-agnostic.
type Server struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	verifier *auth.Verifier
	store    *history.Store
	probes   Probes
	logger   logger.Logger
	httpSrv  *http.Server
}

// New wires the transport. verifier may be nil or disabled, in which case
// the request body's identity claims are trusted (dev mode). store may be
// nil, in which case turns are not persisted and history endpoints report
// the store as unavailable.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, verifier *auth.Verifier, store *history.Store, probes Probes, log logger.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		verifier: verifier,
		store:    store,
		probes:   probes,
		logger:   log.WithFields(map[string]interface{}{"component": "server"}),
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/chat/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("DELETE /api/v1/chat/history/{id}", s.handleHistoryDelete)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Handler exposes the route tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleReady pings every configured backend. Any failing ping degrades the
// answer to 503 so orchestration platforms hold traffic until the backends
// come back.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if s.probes.Postgres != nil {
		if err := s.probes.Postgres.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			ready = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if s.probes.Redis != nil {
		if err := s.probes.Redis.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if s.probes.Elasticsearch != nil {
		if err := s.probes.Elasticsearch.Ping(); err != nil {
			checks["elasticsearch"] = err.Error()
			ready = false
		} else {
			checks["elasticsearch"] = "ok"
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
