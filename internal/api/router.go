package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/localphoto/backend/internal/auth"
	"github.com/localphoto/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler       *AuthHandler
	submissionHandler *SubmissionHandler
	healthHandler     *HealthHandler
	jwtManager        *auth.JWTManager
	logger            *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	authHandler *AuthHandler,
	submissionHandler *SubmissionHandler,
	healthHandler *HealthHandler,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:       authHandler,
		submissionHandler: submissionHandler,
		healthHandler:     healthHandler,
		jwtManager:        jwtManager,
		logger:            logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.authHandler.Register)
			r.Post("/login", rt.authHandler.Login)
			r.Post("/refresh", rt.authHandler.Refresh)
		})

		r.Route("/submissions", func(r chi.Router) {
			// Public: search, lookup and voting need no identity.
			r.Get("/nearby", rt.submissionHandler.Nearby)
			r.Get("/{id}", rt.submissionHandler.Get)
			r.Post("/{id}/thumbs-up", rt.submissionHandler.ThumbsUp)
			r.Post("/{id}/thumbs-down", rt.submissionHandler.ThumbsDown)

			// Owner-gated operations require authentication.
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthMiddleware(rt.jwtManager))
				r.Post("/", rt.submissionHandler.Create)
				r.Put("/{id}", rt.submissionHandler.Update)
				r.Delete("/{id}", rt.submissionHandler.Delete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.jwtManager))
			r.Get("/me", rt.authHandler.Me)
			r.Get("/me/submissions", rt.submissionHandler.ListMine)
		})
	})

	return r
}
