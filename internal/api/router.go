// Package api serves the marketplace HTTP API: sessions, price analysis,
// listing browse and photo analysis.
package api

import (
	"context"
	"net/http"

	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// PriceAdvisor suggests prices. *pricing.Advisor implements it.
type PriceAdvisor interface {
	Analyze(ctx context.Context, req pricing.Request) pricing.PriceAnalysis
}

// Deps are the services the API is built from. Analyzer may be nil, which
// disables photo analysis.
type Deps struct {
	Advisor     PriceAdvisor
	Sessions    *session.Manager
	Listings    listings.Store
	Analyzer    llm.Analyzer
	CORSOrigins []string
	Version     string
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) *chi.Mux {
	h := newHandler(deps)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(Recovery)
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", SessionHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/sessions", h.StartSession)
		r.Delete("/sessions/{id}", h.EndSession)

		r.Group(func(r chi.Router) {
			r.Use(SessionLoader(deps.Sessions))

			r.Post("/pricing/analyze", h.AnalyzePrice)
			r.Get("/listings", h.BrowseListings)
			r.Post("/listings/analyze-image", h.AnalyzeImage)
		})
	})

	return r
}
