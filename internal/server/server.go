// Package server exposes the contact repository and the derivation
// functions over HTTP for the web UI.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lazypower/tether/internal/auth"
	"github.com/lazypower/tether/internal/repo"
)

// Server is the tether HTTP API server.
type Server struct {
	contacts repo.Repository
	verifier *auth.Verifier
	logger   *zap.Logger
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server. A nil verifier runs the API in single-user
// mode; otherwise every /api/contacts route requires a bearer token.
func New(contacts repo.Repository, verifier *auth.Verifier, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		contacts: contacts,
		verifier: verifier,
		logger:   logger,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.verifier))

			r.Get("/contacts", s.handleListContacts)
			r.Post("/contacts", s.handleCreateContact)
			r.Get("/contacts/{contactID}", s.handleGetContact)
			r.Put("/contacts/{contactID}", s.handleSaveContact)
			r.Delete("/contacts/{contactID}", s.handleDeleteContact)
			r.Get("/contacts/{contactID}/insights", s.handleInsights)
			r.Post("/contacts/{contactID}/conversations", s.handleAddConversation)
			r.Post("/contacts/{contactID}/reminders", s.handleAddReminder)
			r.Post("/contacts/{contactID}/details", s.handleAddDetail)
			r.Get("/reminders/upcoming", s.handleUpcomingReminders)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}
