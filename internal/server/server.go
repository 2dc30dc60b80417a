// Package server exposes the tutoring orchestrator over HTTP: a REST surface
// for session management, SSE streams for the phase turns, and a WebSocket
// feed mirroring the event bus.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mentorkit/mentor/internal/events"
	"github.com/mentorkit/mentor/internal/orchestrator"
	"github.com/mentorkit/mentor/internal/server/ws"
	"github.com/mentorkit/mentor/internal/session"
)

// Server is the mentor HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	repo       session.Repository
	orch       *orchestrator.Orchestrator
}

// NewServer wires the REST routes, SSE endpoints and the WebSocket hub.
func NewServer(orch *orchestrator.Orchestrator, repo session.Repository, bus *events.Bus, host string, port int) *Server {
	s := &Server{
		hub:  ws.NewHub(bus),
		bus:  bus,
		repo: repo,
		orch: orch,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", s.hub.ServeWS)
	r.Get("/api/events", s.handleEvents)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/inquiry", s.handleInquiry)
			r.Post("/plan", s.handlePlan)
			r.Post("/chat", s.handleChat)
			r.Get("/messages", s.handleMessages)
			r.Get("/files", s.handleFiles)
			r.Get("/files/*", s.handleReadFile)
			r.Get("/export", s.handleExport)
			r.Get("/exercises/{exerciseID}", s.handleGetExercise)
		})
	})
	r.Post("/api/exercises/validate", s.handleValidateExercise)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("mentor listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	history := s.bus.History(limit)
	if history == nil {
		history = []events.Event{}
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func exportFilename(sessionID string) string {
	return fmt.Sprintf("conversation-%s-%s.json", sessionID, time.Now().Format("20060102_150405"))
}
