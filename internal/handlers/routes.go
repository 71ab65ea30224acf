package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abrezinsky/paredao/internal/auth"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// WebSocket (long lived, outside the request timeout)
	if h.Hub != nil {
		r.With(auth.Load).Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Guest pages
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireGuest)
			r.Get("/login", h.handleLoginPage)
			r.Post("/login", h.handleLogin)
			r.Get("/register", h.handleRegisterPage)
			r.Post("/register", h.handleRegister)
		})

		// Public pages, session optional
		r.Group(func(r chi.Router) {
			r.Use(auth.Load)
			r.Post("/logout", h.handleLogout)
			r.Get("/voting", h.handleVotingPage)
			r.Post("/voting/vote", h.handleVote)
			r.Get("/voting/qr", h.handleVotingQR)
		})

		// Signed-in pages
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken)

			// Dashboard
			r.Get("/", h.handleDashboardPage)
			r.Post("/dashboard/refresh", h.handleRefreshDashboard)

			// Participants
			r.Get("/participants", h.handleParticipantsPage)
			r.Post("/participants", h.handleCreateParticipant)
			r.Delete("/participants/{id}", h.handleDeleteParticipant)

			// Eliminations
			r.Get("/eliminations", h.handleEliminationsPage)
			r.Post("/eliminations", h.handleCreateElimination)
			r.Patch("/eliminations/{id}/finish", h.handleCloseElimination)
		})
	})

	return r
}
