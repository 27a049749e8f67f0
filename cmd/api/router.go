package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpAdapter "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http"
	mw "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http/middleware"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/auth"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/config"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *slog.Logger
	tokens    *auth.TokenManager
	wildcards *httpAdapter.WildcardHandler
	me        *httpAdapter.MeHandler
	usage     *httpAdapter.UsageHandler
	health    *httpAdapter.HealthHandler
	websocket http.Handler
	metrics   http.Handler
	limiter   *mw.RateLimiter
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RecoveryLogger(deps.logger))
	r.Use(mw.RequestLogger(deps.logger))

	if origins := deps.cfg.WebSocket.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", mw.RequestIDHeader},
			ExposedHeaders:   []string{mw.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Probes and scraping stay outside the rate limiter.
	deps.health.RegisterRoutes(r)
	if deps.metrics != nil {
		r.Handle("/metrics", deps.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.limiter != nil {
			r.Use(deps.limiter.Middleware)
		}

		// WebSocket route (authentication is handled inside the handler)
		r.Get("/ws", deps.websocket.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(deps.tokens))
			r.Route("/wildcards", deps.wildcards.RegisterRoutes)
			r.Route("/me", deps.me.RegisterRoutes)
			r.Route("/usage", deps.usage.RegisterRoutes)
		})
	})

	return r
}
