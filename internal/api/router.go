// Package api assembles the HTTP surface: router, middleware, handlers, and
// the response envelope.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/ombulabs/rails-superhero-cards/internal/api/middleware"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit     *mw.RateLimit
	MaxUploadSize int64
	AllowOrigins  []string

	HealthHandler   http.HandlerFunc
	GenerateHandler http.HandlerFunc
	StatusHandler   http.HandlerFunc
	StreamHandler   http.HandlerFunc
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", deps.HealthHandler)

	// Submission is the only guarded route: the stream and status endpoints
	// are cheap reads, the generation pipeline is not.
	r.Group(func(r chi.Router) {
		r.Use(mw.MaxBytes(deps.MaxUploadSize))
		r.Use(deps.RateLimit.Limit)
		r.Post("/generate-hero-card", deps.GenerateHandler)
	})

	r.Get("/status/{jobID}", deps.StatusHandler)
	r.Get("/stream/{sessionID}", deps.StreamHandler)

	return r
}
