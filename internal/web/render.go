package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var assetsFS embed.FS

// pages maps a page name to its template set, each parsed with the layout.
type pages map[string]*template.Template

var pageNames = []string{"signup", "login", "dashboard"}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(d models.Date) string { return d.String() },
}

func parsePages() (pages, error) {
	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p[name] = t
	}
	return p, nil
}

// pageData is what every page renders from. Board is set on the dashboard only.
type pageData struct {
	Title         string
	Theme         string
	Path          string
	User          *models.User
	Error         string
	Notice        string
	GoogleEnabled bool
	Name          string
	Email         string
	Board         *boardData
}

func (s *Server) basePage(r *http.Request, title string) pageData {
	data := pageData{
		Title:         title,
		Theme:         themeFor(r),
		Path:          r.URL.RequestURI(),
		GoogleEnabled: s.identity.FederatedEnabled(),
	}
	if sess := sessionFrom(r.Context()); sess != nil {
		u := sess.User
		data.User = &u
	}
	return data
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Log.Error().Err(err).Str("page", name).Msg("Failed to render page")
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
