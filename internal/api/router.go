package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.collectors != nil {
		r.Use(s.collectors.Middleware)
	}
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.collectors != nil && s.metricsCfg.Enabled {
		r.Handle(s.metricsCfg.Path, s.collectors.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Not found")
		})

		// Open endpoints
		r.Get("/health", s.handleHealth)
		r.With(s.rateLimitMiddleware).Post("/auth", s.handleLogin)
		r.Get("/auth/info", s.handleAuthInfo)

		// Behind the access gate
		r.Group(func(r chi.Router) {
			r.Use(s.gateMiddleware)

			r.Get("/auth/session", s.handleSession)
			r.Post("/auth/logout-all", s.handleLogoutAll)

			r.Get("/totp/setup", s.handleTOTPSetup)
			r.With(s.rateLimitMiddleware).Post("/totp/verify", s.handleTOTPVerify)

			r.Route("/secret", func(r chi.Router) {
				r.Get("/info", s.handleSecretInfo)
				r.Post("/clear", s.handleSecretClear)
				r.Post("/regenerate", s.handleSecretRegenerate)
			})

			r.Get("/status", s.handleStatus)
			r.Get("/audit", s.handleListAuditLogs)
		})
	})

	// Login page (embedded static assets)
	if s.ui != nil {
		r.Handle("/*", s.ui)
	}

	return r
}
