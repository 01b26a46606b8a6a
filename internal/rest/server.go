// Package rest exposes the client-facing HTTP surface: sandbox CRUD,
// command submission, status, logs and termination.
package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	scalar "github.com/MarceloPetrucio/go-scalar-api-reference"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/habbes/sandstorm/internal/config"
	"github.com/habbes/sandstorm/internal/orchestrator"
)

type Server struct {
	Router       *chi.Mux
	orchestrator *orchestrator.Orchestrator
	cfg          *config.Config
	logger       *slog.Logger
	openapiYAML  []byte
}

func NewServer(orch *orchestrator.Orchestrator, cfg *config.Config, openapiYAML []byte) *Server {
	s := &Server{
		orchestrator: orch,
		cfg:          cfg,
		logger:       slog.Default().With("component", "rest"),
		openapiYAML:  openapiYAML,
	}
	s.Router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.cfg.API.CORSOrigin))

	trustedNets := parseCIDRs(s.cfg.API.TrustedProxies, s.logger)

	// Public routes
	r.Get("/healthz", s.handleHealth)

	r.Get("/docs/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(s.openapiYAML)
	})

	if s.cfg.API.EnableDocs {
		r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
			html, err := scalar.ApiReferenceHTML(&scalar.Options{
				SpecURL: "/docs/openapi.yaml",
				CustomOptions: scalar.CustomOptions{
					PageTitle: "Sandstorm API Reference",
				},
				DarkMode: true,
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprintln(w, html)
		})
	}

	r.Route("/api", func(r chi.Router) {
		// Sandboxes
		r.With(rateLimitByIP(0.5, 5, trustedNets)).Post("/sandboxes", s.handleCreateSandbox)
		r.Get("/sandboxes", s.handleListSandboxes)
		r.Route("/sandboxes/{sandboxID}", func(r chi.Router) {
			r.Get("/", s.handleGetSandbox)
			r.Delete("/", s.handleDeleteSandbox)
			r.Get("/logs", s.handleSandboxLogs)

			// Commands
			r.With(rateLimitByIP(5, 20, trustedNets)).Post("/commands", s.handleRunCommand)
			r.Route("/commands/{processID}", func(r chi.Router) {
				r.Get("/status", s.handleCommandStatus)
				r.Get("/logs", s.handleCommandLogs)
				r.Delete("/", s.handleTerminateCommand)
			})
		})

		// Agents (read-only fleet view)
		r.Get("/agents", s.handleListAgents)
	})

	return r
}

func corsMiddleware(allowOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
