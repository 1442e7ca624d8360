// Package server exposes the platform over HTTP: the claim workflow,
// the complaint inbox, company profiles, evidence uploads and the admin
// event views. JSON in, JSON out.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/reporthere/reporthere/internal/claims"
	"github.com/reporthere/reporthere/internal/events"
	"github.com/reporthere/reporthere/internal/inbox"
	"github.com/reporthere/reporthere/internal/logger"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/uploads"
)

// Server wraps the HTTP surface over the platform services.
type Server struct {
	claims    *claims.Service
	inbox     *inbox.Service
	events    *events.Service
	companies store.CompanyStore
	uploads   *uploads.Store
	triggers  inbox.Triggers

	// identity middleware; nil disables authentication (development only)
	authn func(http.Handler) http.Handler
}

// NewServer creates a new server over the given services. authn is the
// bearer-token middleware; pass nil to run without authentication.
func NewServer(
	claimsSvc *claims.Service,
	inboxSvc *inbox.Service,
	eventsSvc *events.Service,
	companies store.CompanyStore,
	uploadStore *uploads.Store,
	triggers inbox.Triggers,
	authn func(http.Handler) http.Handler,
) *Server {
	return &Server{
		claims:    claimsSvc,
		inbox:     inboxSvc,
		events:    eventsSvc,
		companies: companies,
		uploads:   uploadStore,
		triggers:  triggers,
		authn:     authn,
	}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logger.Requests(log))

	// Health check endpoint for load balancer
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Stored evidence is served by content-addressed key, so no
	// authentication is required to fetch it.
	r.Get("/uploads/{key}", s.serveUpload)

	r.Route("/api", func(r chi.Router) {
		if s.authn != nil {
			r.Use(s.authn)
		}

		r.Post("/claims", s.submitClaim)
		r.Post("/claims/{id}/code", s.startEmailVerification)
		r.Post("/claims/{id}/verify", s.confirmEmailCode)

		r.Get("/companies/{slug}", s.getCompany)
		r.Get("/companies/{slug}/complaints", s.listCompanyComplaints)

		r.Post("/complaints", s.fileComplaint)
		r.Get("/complaints/{id}", s.getComplaint)
		r.Post("/complaints/{id}/assign", s.assignComplaint)
		r.Post("/complaints/{id}/respond", s.respondComplaint)
		r.Post("/complaints/{id}/resolve", s.resolveComplaint)
		r.Post("/complaints/{id}/annotate", s.annotateComplaint)
		r.Post("/complaints/{id}/flag", s.flagEvidence)
		r.Post("/complaints/{id}/share", s.shareComplaint)

		r.Get("/admin/events", s.recentEvents)
		r.Get("/admin/events/stats", s.eventStats)

		r.Post("/uploads", s.uploadEvidence)
	})

	return r
}
