package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sowfeehealth/wellness/internal/middleware"
	"github.com/sowfeehealth/wellness/internal/services"
)

// Store aggregates the persistence surface the API needs; the sqlite
// store implements all of it.
type Store interface {
	services.AuthStore
	services.TemplateStore
	services.AutosaveStore
	services.SubmissionStore
}

type Router struct {
	auth        *services.AuthService
	templates   *services.TemplateService
	autosaves   *services.AutosaveService
	submissions *services.SubmissionService
}

func NewRouter(store Store) *Router {
	return &Router{
		auth:        services.NewAuthService(store, middleware.SignToken),
		templates:   services.NewTemplateService(store),
		autosaves:   services.NewAutosaveService(store),
		submissions: services.NewSubmissionService(store),
	}
}

// Handler assembles the API routes behind the auth middleware.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithAuth)

	r.Post("/api/auth/register", rt.handleRegister)
	r.Post("/api/auth/login", rt.handleLogin)
	r.Get("/api/me", rt.handleMe)

	r.Get("/api/survey/link/{hash}", rt.handleHashLinkSurvey)
	r.Post("/api/survey/link/{hash}/submit", rt.handleHashLinkSubmit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/api/survey/questions", rt.handleQuestions)
		r.Post("/api/survey/submit", rt.handleSubmit)
		r.Post("/api/survey/autosave/{templateID}", rt.handleAutosaveSave)
		r.Get("/api/survey/autosave/{templateID}", rt.handleAutosaveLoad)
		r.Delete("/api/survey/autosave/{templateID}", rt.handleAutosaveClear)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": "Wellness API"})
	})
	return r
}
