// Package server provides the local HTTP control surface for the palm
// authentication agent.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/server/api"
	"github.com/ayusman/palmgate/internal/store"
)

// Config holds the server configuration. Nil collaborators disable the
// routes that need them.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Camera     capture.Camera
	Controller api.Controller
	Alignment  *AlignmentHandler
}

// Server is the agent's HTTP server. It only ever binds locally; there
// is no authentication on the control surface.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if s.config.Controller != nil {
		sessionHandler := api.NewSessionHandler(s.config.Controller)
		s.router.HandleFunc("/api/session/start", sessionHandler.Start).Methods(http.MethodPost)
		s.router.HandleFunc("/api/session/stop", sessionHandler.Stop).Methods(http.MethodPost)
		s.router.HandleFunc("/api/session/status", sessionHandler.Status).Methods(http.MethodGet)
	}

	if s.config.Store != nil {
		attemptsHandler := api.NewAttemptsHandler(s.config.Store)
		s.router.HandleFunc("/api/attempts", attemptsHandler.List).Methods(http.MethodGet)
	}

	if s.config.Camera != nil {
		s.router.Handle("/api/stream", NewStreamHandler(s.config.Camera)).Methods(http.MethodGet)
	}

	if s.config.Alignment != nil {
		s.router.Handle("/api/alignment", s.config.Alignment).Methods(http.MethodGet)
	}

	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
