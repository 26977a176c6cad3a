package http

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nomadnest/nomadnest/internal/auth"
	"github.com/nomadnest/nomadnest/internal/config"
	"github.com/nomadnest/nomadnest/internal/httputil"
	"github.com/nomadnest/nomadnest/internal/itinerary"
	"github.com/nomadnest/nomadnest/internal/listing"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/ratelimit"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/web"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handlers and middleware the router wires together.
type Deps struct {
	Sessions       *session.Manager
	Views          *web.Renderer
	AuthMiddleware *auth.Middleware
	Auth           *auth.Handler
	Listings       *listing.Handler
	Itinerary      *itinerary.Handler
	FormLimiter    *ratelimit.IPBuckets
	Static         fs.FS
	DB             Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Deps, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses
	r.Use(MethodOverride)                // Forms tunnel PUT and DELETE through POST

	// Public routes
	r.Get("/health", handleHealth(deps.DB))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(deps.Static)))
	if cfg.Storage.S3Bucket == "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Storage.UploadDir))))
	}

	withSession := chi.Chain(deps.Sessions.Middleware, deps.AuthMiddleware.LoadUser)
	r.NotFound(withSession.HandlerFunc(deps.Views.NotFound).ServeHTTP)

	suggestionsCORS := cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.TrustedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300, // 5 minutes
	})

	r.Group(func(r chi.Router) {
		r.Use(withSession...)

		r.Get("/", deps.Listings.Home)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", deps.Listings.Index)
			r.With(auth.RequireAuth).Post("/", deps.Listings.Create)
			r.With(auth.RequireAuth).Get("/new", deps.Listings.New)

			r.Get("/itinerary", deps.Itinerary.Form)
			r.Post("/itinerary", deps.Itinerary.Generate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Listings.Show)

				// Owner and author checks happen in the listing service
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAuth)
					r.Put("/", deps.Listings.Update)
					r.Delete("/", deps.Listings.Delete)
					r.Get("/edit", deps.Listings.Edit)
					r.Post("/reviews", deps.Listings.CreateReview)
					r.Delete("/reviews/{reviewID}", deps.Listings.DeleteReview)
				})
			})
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", deps.Listings.Search)
			r.With(suggestionsCORS).Get("/suggestions", deps.Listings.Suggestions)
		})

		limited := r.With(RateLimit(deps.FormLimiter))
		r.Get("/signup", deps.Auth.SignupForm)
		limited.Post("/signup", deps.Auth.Signup)
		r.Get("/login", deps.Auth.LoginForm)
		limited.Post("/login", deps.Auth.Login)
		r.Get("/logout", deps.Auth.Logout)
		r.Get("/forgot", deps.Auth.ForgotForm)
		r.Post("/forgot", deps.Auth.ForgotPassword)
		r.Get("/reset", deps.Auth.ResetForm)
		r.Post("/reset", deps.Auth.ResetPassword)
	})

	return r
}

// handleHealth reports whether the database answers a ping.
func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				logging.GetLoggerFromContext(r.Context()).Error("health check failed", "error", err)
				httputil.RespondError(w, r, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		httputil.RespondJSON(w, r, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
