// Package api exposes the investigation engine and agent runtime over
// REST/JSON, plus a websocket event stream.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghostwallet/hunter/internal/agents"
	"github.com/ghostwallet/hunter/internal/config"
	"github.com/ghostwallet/hunter/internal/store"
	"github.com/ghostwallet/hunter/internal/strategy"
	"github.com/ghostwallet/hunter/internal/webhooks"
	"github.com/ghostwallet/hunter/internal/websocket"
)

// Investigator is the one-shot investigation entry point the API fronts.
type Investigator interface {
	Investigate(ctx context.Context, addr string, opts strategy.Options) (*strategy.InvestigationResult, error)
}

// Server wires the HTTP surface. All dependencies are filled at startup.
type Server struct {
	investigator Investigator
	store        store.Store
	agents       *agents.Registry
	hooks        *webhooks.Registry
	streamer     *websocket.Streamer
	auth         config.AuthConfig
	logger       *log.Logger
	httpServer   *http.Server
}

// NewServer assembles the API server. streamer and hooks may be nil when
// the corresponding surface is disabled.
func NewServer(inv Investigator, st store.Store, reg *agents.Registry, hooks *webhooks.Registry, streamer *websocket.Streamer, auth config.AuthConfig) *Server {
	return &Server{
		investigator: inv,
		store:        st,
		agents:       reg,
		hooks:        hooks,
		streamer:     streamer,
		auth:         auth,
		logger:       log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.logMiddleware)
	r.Use(s.authMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if s.streamer != nil {
		r.HandleFunc("/ws", s.streamer.HandleWebSocket)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/investigate", s.handleInvestigate).Methods("POST")
	v1.HandleFunc("/investigations/{wallet}", s.handleInvestigations).Methods("GET")

	v1.HandleFunc("/agents/", s.handleListAgents).Methods("GET")
	v1.HandleFunc("/agents/", s.handleCreateAgent).Methods("POST")
	v1.HandleFunc("/agents/{id}", s.handleGetAgent).Methods("GET")
	v1.HandleFunc("/agents/{id}", s.handleUpdateAgent).Methods("PUT")
	v1.HandleFunc("/agents/{id}", s.handleDeleteAgent).Methods("DELETE")
	v1.HandleFunc("/agents/{id}/{action:start|stop|pause|resume}", s.handleAgentLifecycle).Methods("POST")
	v1.HandleFunc("/agents/{id}/webhook", s.handleAgentWebhook).Methods("POST")
	v1.HandleFunc("/agents/{id}/logs", s.handleAgentLogs).Methods("GET")
	v1.HandleFunc("/agents/{id}/tasks", s.handleAgentTasks).Methods("GET")
	v1.HandleFunc("/agents/{id}/tasks/{task_id}", s.handleAgentTask).Methods("GET")
	v1.HandleFunc("/agents/{id}/tasks/{task_id}/cancel", s.handleCancelTask).Methods("POST")

	if s.hooks != nil {
		v1.HandleFunc("/webhooks/", s.handleListWebhooks).Methods("GET")
		v1.HandleFunc("/webhooks/", s.handleRegisterWebhook).Methods("POST")
		v1.HandleFunc("/webhooks/{id}", s.handleUnregisterWebhook).Methods("DELETE")
	}

	return r
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	s.logger.Printf("🚀 Ghost Wallet Hunter API listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	if s.agents != nil {
		health["agents"] = len(s.agents.List())
	}
	if s.streamer != nil {
		health["stream"] = s.streamer.Statistics()
	}
	writeJSON(w, http.StatusOK, health)
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
