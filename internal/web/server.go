// Package web serves the Trackify pages: sign-up, login and the expense
// dashboard, rendered on the server from embedded templates.
package web

import (
	"errors"
	"net/http"
	"time"

	"gitlab.com/yelinaung/trackify/internal/dashboard"
	"gitlab.com/yelinaung/trackify/internal/gemini"
	"gitlab.com/yelinaung/trackify/internal/identity"
	"gitlab.com/yelinaung/trackify/internal/store"
)

// Options configures the web layer.
type Options struct {
	// CookieSecure marks cookies Secure; enable behind HTTPS.
	CookieSecure bool
	// StrictCategories renders the category field as a fixed list.
	StrictCategories bool
	// Location decides the current month for the trend and the default form date.
	Location *time.Location
	Now      func() time.Time
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	identity  identity.Provider
	store     store.Store
	boards    *dashboard.Manager
	suggester gemini.Suggester
	pages     pages
	opts      Options
}

// New creates a Server. suggester may be nil, which hides category suggestions.
func New(id identity.Provider, s store.Store, boards *dashboard.Manager, suggester gemini.Suggester, opts Options) (*Server, error) {
	if id == nil || s == nil || boards == nil {
		return nil, errors.New("web: identity, store and dashboard manager are required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Server{
		identity:  id,
		store:     s,
		boards:    boards,
		suggester: suggester,
		pages:     p,
		opts:      opts,
	}, nil
}

// NewHTTPServer wraps handler in an http.Server. There is no write timeout
// because the dashboard event stream stays open.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}
