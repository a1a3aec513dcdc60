package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(correlationID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/me", h.handleMe)
		r.Post("/interpret-text", h.handleInterpretText)
		r.Post("/interpret-file", h.handleInterpretFile)
		r.Post("/generate-image", h.handleGenerateImage)
		r.Post("/generate-title", h.handleGenerateTitle)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.handleListSessions)
			r.Get("/{sessionID}", h.handleGetSession)
			r.Delete("/{sessionID}", h.handleDeleteSession)
			r.Post("/{sessionID}/followup", h.handleFollowup)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "route_not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method)
	})
	return r
}
