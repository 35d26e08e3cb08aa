package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/auth"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/metrics"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

// Deps are the collaborators the HTTP layer is built from. DB, Metrics and
// Logger are optional.
type Deps struct {
	Users   *user.Service
	Auth    *auth.Authenticator
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewRouter(cfg config.Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	base := deps.Logger
	if base == nil {
		base = zap.NewNop()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(base))
	r.Use(instrument(deps.Metrics))
	r.Use(recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAnyOrigin(cfg.AllowedOrigins),
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	var limiter *authRateLimiter
	if cfg.Auth.RateLimitRequests > 0 {
		limiter = newAuthRateLimiter(cfg.Auth.RateLimitRequests, cfg.Auth.RateLimitWindow)
	}

	h := newHandler(deps)

	r.Get("/health", h.health)
	r.Get("/healthz", h.healthz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.With(limiter.limitByIP("auth_callback")).Post("/auth/callback", h.authCallback)

	r.Get("/users/me", h.me)
	r.Get("/users", h.listUsers)
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/", h.getUser)
		r.Put("/", h.updateUser)
		r.Delete("/", h.deleteUser)
	})
	r.Get("/login-events", h.loginEvents)

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
