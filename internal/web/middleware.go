package web

import (
	"context"
	"net/http"
	"net/url"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/trackify/internal/identity"
	"gitlab.com/yelinaung/trackify/internal/logger"
)

type contextKey int

const sessionKey contextKey = iota

func withSession(ctx context.Context, sess *identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// sessionFrom returns the session set by requireSession.
func sessionFrom(ctx context.Context) *identity.Session {
	sess, _ := ctx.Value(sessionKey).(*identity.Session)
	return sess
}

// requireSession resolves the session cookie or sends the browser to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sess, err := s.identity.CurrentSession(r.Context(), token)
		if err != nil {
			if identity.IsCode(err, identity.CodeSessionExpired) {
				s.boards.Release(token)
				s.clearSessionCookie(w)
				http.Redirect(w, r, "/login?"+url.Values{"expired": {"1"}}.Encode(), http.StatusSeeOther)
				return
			}
			logger.Log.Error().Err(err).Msg("Failed to resolve session")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		event := logger.Log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start))
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			event = event.Str("trace_id", sc.TraceID().String())
		}
		event.Msg("HTTP request")
	})
}

const contentSecurityPolicy = "default-src 'self'; " +
	"img-src 'self' data:; " +
	"style-src 'self'; " +
	"script-src 'self'; " +
	"connect-src 'self'; " +
	"object-src 'none'; " +
	"frame-ancestors 'none'; " +
	"base-uri 'self'; " +
	"form-action 'self' https://accounts.google.com"

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Accept-CH", themeHint)
		h.Add("Vary", themeHint)
		next.ServeHTTP(w, r)
	})
}
