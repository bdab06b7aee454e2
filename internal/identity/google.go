package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleOAuthConfig builds the OAuth2 client configuration for Google sign-in.
func GoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

type googleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// FederatedEnabled reports whether Google sign-in is configured.
func (s *Service) FederatedEnabled() bool {
	return s.opts.OAuth != nil
}

// FederatedURL returns the Google consent page URL carrying state.
func (s *Service) FederatedURL(state string) (string, error) {
	if s.opts.OAuth == nil {
		return "", disabled()
	}
	return s.opts.OAuth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// SignInFederated exchanges an authorization code and signs the Google user in.
// A Google identity is linked to an existing account with the same verified
// email; otherwise a new account is created.
func (s *Service) SignInFederated(ctx context.Context, code string) (*Session, error) {
	if s.opts.OAuth == nil {
		return nil, disabled()
	}
	failed := authErr(CodeFederatedFailed, "Google sign-in failed. Please try again.")
	if code == "" {
		return nil, failed
	}

	token, err := s.opts.OAuth.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Google token exchange failed")
		failed.Err = err
		return nil, failed
	}

	gu, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Google userinfo request failed")
		failed.Err = err
		return nil, failed
	}
	if gu.Subject == "" || gu.Email == "" {
		return nil, failed
	}

	account, err := s.accounts.GetByGoogleSubject(ctx, gu.Subject)
	switch {
	case err == nil:
		return s.startSession(ctx, account)
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, unavailable(err)
	}

	if !gu.EmailVerified {
		return nil, authErr(CodeFederatedFailed, "Your Google account email is not verified.")
	}

	account, err = s.accounts.GetByEmail(ctx, gu.Email)
	switch {
	case err == nil:
		if err := s.accounts.LinkGoogle(ctx, account.ID, gu.Subject); err != nil {
			return nil, unavailable(err)
		}
		account.GoogleSubject = gu.Subject
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(account.ID)).
			Msg("Linked Google identity to existing account")
	case errors.Is(err, repository.ErrAccountNotFound):
		account = &models.Account{
			ID:            uuid.NewString(),
			Email:         gu.Email,
			Name:          gu.Name,
			GoogleSubject: gu.Subject,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, unavailable(err)
		}
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(account.ID)).
			Msg("Account created from Google sign-in")
	default:
		return nil, unavailable(err)
	}

	return s.startSession(ctx, account)
}

func (s *Service) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*googleUser, error) {
	client := s.opts.OAuth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &gu, nil
}

func disabled() *AuthError {
	return authErr(CodeFederatedDisabled, "Google sign-in is not configured.")
}
