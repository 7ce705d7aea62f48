package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"idscan/internal/handlers"
	"idscan/internal/middleware"
	"idscan/internal/models"
	"idscan/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	CORSOrigins        []string
	RequireAuthExtract bool
	Limiter            ratelimit.Limiter
	Logger             *slog.Logger
}

func RegisterRouter(api *handlers.API, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Session(api.Sessions))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	r.Get("/api/ai-extract", api.ExtractHealth)
	r.Group(func(r chi.Router) {
		if opts.RequireAuthExtract {
			r.Use(middleware.RequireRole())
		}
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
		}
		r.Post("/api/ai-extract", api.Extract)
	})

	r.Post("/api/students/register", api.RegisterStudent)
	r.Post("/api/auth/login", api.Login)
	r.Post("/api/auth/logout", api.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole())
		r.Get("/api/auth/me", api.Me)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleTeacher, models.RoleStudent))
		r.Get("/api/students/{studentId}/qrcode", api.StudentQRCode)
	})
	return r
}
