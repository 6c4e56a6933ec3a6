// Package httpapi is the admin HTTP surface (C14, SPEC_FULL.md §4.14): a
// health/readiness pair for the orchestrator, a bearer+TOTP-guarded
// manual-trigger endpoint, and a websocket stream of a running cycle's log
// lines. Grounded on the teacher's internal/handlers/api_router.go
// (mux.NewRouter, subrouter-per-resource, middleware chaining) and
// internal/middleware/middleware.go.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pageza/fleet-replanner/internal/authz"
	"github.com/pageza/fleet-replanner/internal/replan"
)

// Server holds everything the router's handlers need.
type Server struct {
	Orchestrator *replan.Orchestrator
	Authz        *authz.Service
	TOTPSecret   string
	Hub          *Hub
	Logger       *log.Logger

	mu      sync.Mutex
	running bool
}

// NewServer builds a C14 server. The orchestrator's logger is redirected
// through the hub so a manual trigger's progress is visible on the
// websocket stream as well as the process log.
func NewServer(orc *replan.Orchestrator, az *authz.Service, totpSecret string, logger *log.Logger) *Server {
	hub := NewHub()
	orc.Logger = log.New(broadcastAndLog{hub, logger}, "", log.LstdFlags)
	return &Server{Orchestrator: orc, Authz: az, TOTPSecret: totpSecret, Hub: hub, Logger: logger}
}

type broadcastAndLog struct {
	hub    *Hub
	logger *log.Logger
}

func (w broadcastAndLog) Write(p []byte) (int, error) {
	newBroadcastWriter(w.hub).Write(p)
	return w.logger.Writer().Write(p)
}

// NewRouter builds the gorilla/mux router, grounded on the teacher's
// PathPrefix("/api/v1").Subrouter() versioning and per-resource middleware.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging(s.Logger))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(BearerAuth(s.Authz))
	api.HandleFunc("/replan", s.handleTrigger).Methods(http.MethodPost)
	api.HandleFunc("/replan/stream", s.handleStream).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// handleTrigger runs a replan cycle on demand. It requires a TOTP step-up
// on top of the bearer token (SPEC_FULL.md §4.15): an operator with a
// stolen bearer token alone cannot force an off-schedule cycle.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	code := r.Header.Get("X-TOTP-Code")
	if code == "" || !s.Authz.ValidateTOTP(s.TOTPSecret, code) {
		http.Error(w, "missing or invalid totp code", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a cycle is already running", http.StatusConflict)
		return
	}
	s.running = true
	s.mu.Unlock()

	operator, _ := operatorFromContext(r.Context())
	s.Logger.Printf("cycle triggered by %s", operator)

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := s.Orchestrator.Run(ctx)
		if err != nil {
			s.Logger.Printf("cycle failed: %v", err)
			return
		}
		s.Logger.Printf("cycle complete: %d scheduled, %d pending review, %d passes",
			len(result.Scheduled), len(result.PendingReview), result.PassesRun)
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "cycle started"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and relays the running cycle's log
// lines until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(ch)

	for line := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
