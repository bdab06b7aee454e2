package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"gitlab.com/yelinaung/trackify/internal/identity"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/store"
)

// Profile document fields.
const (
	profileID    = "id"
	profileName  = "name"
	profileEmail = "email"
)

const msgGoogleStateMismatch = "Google sign-in could not be verified. Please try again."

// signedIn reports whether the request carries a live session.
func (s *Server) signedIn(r *http.Request) bool {
	token := sessionToken(r)
	if token == "" {
		return false
	}
	_, err := s.identity.CurrentSession(r.Context(), token)
	return err == nil
}

func (s *Server) signupForm(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "signup", s.basePage(r, "Sign up"))
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		data := s.basePage(r, "Sign up")
		data.Error = msg
		data.Name = name
		data.Email = email
		s.render(w, status, "signup", data)
	}

	if name == "" {
		fail(http.StatusUnprocessableEntity, "Full name is required.")
		return
	}

	sess, err := s.identity.SignUp(r.Context(), email, password, name)
	if err != nil {
		fail(authStatus(err), err.Error())
		return
	}

	if err := s.writeProfile(r.Context(), sess.User); err != nil {
		logger.Log.Error().Err(err).
			Str("user_hash", logger.HashUserID(sess.User.ID)).
			Msg("Failed to write user profile")
		_ = s.identity.SignOut(r.Context(), sess.Token)
		fail(http.StatusServiceUnavailable, storeMessage(err))
		return
	}

	s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	data := s.basePage(r, "Log in")
	if r.URL.Query().Get("expired") == "1" {
		data.Notice = "Your session has expired. Please sign in again."
	}
	s.render(w, http.StatusOK, "login", data)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))

	sess, err := s.identity.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		data := s.basePage(r, "Log in")
		data.Error = err.Error()
		data.Email = email
		s.render(w, authStatus(err), "login", data)
		return
	}

	s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) googleStart(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate OAuth state")
		s.loginError(w, r, http.StatusInternalServerError, "Google sign-in failed. Please try again.")
		return
	}

	target, err := s.identity.FederatedURL(state)
	if err != nil {
		s.loginError(w, r, authStatus(err), err.Error())
		return
	}

	s.setStateCookie(w, state)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := r.Cookie(stateCookie)
	s.clearStateCookie(w)
	if err != nil || c.Value == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		s.loginError(w, r, http.StatusBadRequest, msgGoogleStateMismatch)
		return
	}
	if reason := q.Get("error"); reason != "" {
		logger.Log.Info().Str("reason", reason).Msg("Google sign-in cancelled")
		s.loginError(w, r, http.StatusUnauthorized, "Google sign-in was cancelled.")
		return
	}

	sess, err := s.identity.SignInFederated(r.Context(), q.Get("code"))
	if err != nil {
		s.loginError(w, r, authStatus(err), err.Error())
		return
	}

	if err := s.writeProfile(r.Context(), sess.User); err != nil {
		logger.Log.Error().Err(err).
			Str("user_hash", logger.HashUserID(sess.User.ID)).
			Msg("Failed to write user profile")
		_ = s.identity.SignOut(r.Context(), sess.Token)
		s.loginError(w, r, http.StatusServiceUnavailable, storeMessage(err))
		return
	}

	s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.identity.SignOut(r.Context(), token); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to end session")
		}
		s.boards.Release(token)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) loginError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := s.basePage(r, "Log in")
	data.Error = msg
	s.render(w, status, "login", data)
}

// writeProfile stores the user profile once; an existing profile is kept as is.
func (s *Server) writeProfile(ctx context.Context, u models.User) error {
	err := s.store.CreateWithID(ctx, models.CollectionUsers, u.ID, u.ID, store.Document{
		profileID:    u.ID,
		profileName:  u.Name,
		profileEmail: u.Email,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

func authStatus(err error) int {
	var ae *identity.AuthError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case identity.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case identity.CodeWrongCredentials, identity.CodeSessionExpired, identity.CodeFederatedFailed:
		return http.StatusUnauthorized
	case identity.CodeEmailInUse:
		return http.StatusConflict
	case identity.CodeFederatedDisabled:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

// storeMessage returns the human-readable part of a store error.
func storeMessage(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Something went wrong. Please try again."
}
