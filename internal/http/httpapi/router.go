package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"vidiai/internal/http/handlers"
	"vidiai/internal/metrics"
	"vidiai/internal/middleware"
)

// Options wires the cross-cutting pieces of the router.
type Options struct {
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
	CountryLookup   middleware.CountryLookup
	CORSOrigins     []string
	AdminToken      string
	RateLimitPerMin int
	// StaticDir is served under /static when uploads go to the local filesystem.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.Country(opts.CountryLookup),
	)
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	rateLimit := middleware.RateLimit(limit, time.Minute)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/templates", app.Templates)
	r.Get("/v1/credit-packs", app.CreditPacks)
	r.With(rateLimit).Post("/v1/session", app.Session)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.JWTSecret), rateLimit)
		r.Get("/v1/me/balance", app.Balance)
		r.Post("/v1/uploads", app.Upload)
		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.CreateGeneration)
			r.Get("/", app.ListGenerations)
			r.Get("/{job_id}", app.GetGeneration)
			r.Delete("/{job_id}", app.DeleteGeneration)
		})
		r.Post("/v1/templates/{template_id}/generations", app.CreateTemplateGeneration)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(opts.AdminToken))
		r.Post("/v1/billing/credits", app.BillingCredits)
		r.Get("/v1/admin/stats", app.AdminStats)
	})

	return r
}
