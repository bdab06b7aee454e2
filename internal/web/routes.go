package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)

	static, _ := fs.Sub(assetsFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/healthz", s.health)
	r.Post("/theme", s.toggleTheme)

	r.Get("/", s.signupForm)
	r.Get("/signup", s.signupForm)
	r.Post("/signup", s.signup)
	r.Get("/login", s.loginForm)
	r.Post("/login", s.login)
	r.Get("/auth/google", s.googleStart)
	r.Get("/auth/google/callback", s.googleCallback)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/dashboard", s.showDashboard)
		r.Get("/dashboard/export", s.export)
		r.Get("/dashboard/chart.png", s.chart)
		r.Get("/dashboard/events", s.events)

		r.Post("/expenses", s.submitExpense)
		r.Post("/expenses/cancel", s.cancelEdit)
		r.Post("/expenses/suggest", s.suggestCategory)
		r.Get("/expenses/{id}/edit", s.editExpense)
		r.Post("/expenses/{id}/delete", s.deleteExpense)
	})

	return otelhttp.NewHandler(r, "trackify.http")
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
