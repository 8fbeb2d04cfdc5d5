// Package auth exchanges Unsplash authorization codes for bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/brizzai/imagefeed/internal/auth/constants"
	"github.com/brizzai/imagefeed/internal/auth/models"
	"github.com/brizzai/imagefeed/internal/auth/providers"
	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/inflight"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrInvalidRedirect means a redirect URL carries no authorization code
var ErrInvalidRedirect = errors.New("redirect does not carry an authorization code")

// Service fetches OAuth tokens. Concurrent fetches for the same code share
// one exchange; a fetch for a new code supersedes the running one.
type Service struct {
	provider providers.Provider
	store    tokenstore.Store
	group    *inflight.Group[*models.OAuthToken]
}

// NewService creates a new OAuth service
func NewService(provider providers.Provider, store tokenstore.Store, d mainloop.Dispatcher) *Service {
	return &Service{
		provider: provider,
		store:    store,
		group:    inflight.NewGroup[*models.OAuthToken]("oauth_token", d),
	}
}

// FetchOAuthToken exchanges code and stores the resulting bearer token
// before completion runs on the main loop. Completions of a superseded
// fetch are never called.
func (s *Service) FetchOAuthToken(code string, completion func(string, error)) {
	joined := s.group.Do(code,
		func(ctx context.Context) (*models.OAuthToken, error) {
			return s.provider.Exchange(ctx, code)
		},
		func(token *models.OAuthToken) error {
			if err := s.store.SetToken(context.Background(), token.AccessToken); err != nil {
				logger.Error("failed to persist bearer token", zap.Error(err))
				return fmt.Errorf("failed to persist bearer token: %w", err)
			}
			logger.Info("bearer token stored", zap.String("scope", token.Scope))
			return nil
		},
		func(token *models.OAuthToken, err error) {
			if completion == nil {
				return
			}
			if err != nil {
				completion("", err)
				return
			}
			completion(token.AccessToken, nil)
		},
	)
	if joined {
		logger.Debug("token exchange already running for this code")
	}
}

// Token is the blocking form of FetchOAuthToken
func (s *Service) Token(ctx context.Context, code string) (string, error) {
	return inflight.Await(ctx, func(done func(string, error)) {
		s.FetchOAuthToken(code, done)
	})
}

// Cancel drops the exchange in flight, if any
func (s *Service) Cancel() {
	s.group.Cancel()
}

// AuthURL returns the consent page URL for the configured application
func (s *Service) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

// CodeFromRedirect extracts the authorization code from the URL Unsplash
// redirects to after consent
func CodeFromRedirect(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRedirect, err)
	}
	if u.Path != constants.NativeRedirectPath {
		return "", fmt.Errorf("%w: unexpected path %q", ErrInvalidRedirect, u.Path)
	}
	code := u.Query().Get(constants.CodeQueryParam)
	if code == "" {
		return "", ErrInvalidRedirect
	}
	return code, nil
}

// Module provides the Unsplash provider and the token Service
var Module = fx.Options(
	fx.Provide(
		func(cfg *config.Config, r *requester.HTTPRequester) providers.Provider {
			return providers.NewUnsplashProvider(&cfg.Unsplash, r.Client())
		},
		NewService,
	),
)
