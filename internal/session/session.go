// Package session ties the token, profile, avatar and feed services into
// the sign-in lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/imagefeed/internal/auth"
	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Auth    *auth.Service
	Store   tokenstore.Store
	Profile *profile.Service
	Avatar  *profile.ImageService
	Feed    *feed.Service
}

type Session struct {
	auth    *auth.Service
	store   tokenstore.Store
	profile *profile.Service
	avatar  *profile.ImageService
	feed    *feed.Service
}

func New(p Params) *Session {
	return &Session{
		auth:    p.Auth,
		store:   p.Store,
		profile: p.Profile,
		avatar:  p.Avatar,
		feed:    p.Feed,
	}
}

// Login exchanges code for a token, then loads the profile and the avatar.
// A failed avatar fetch is logged and does not fail the login.
func (s *Session) Login(ctx context.Context, code string) (profile.Profile, error) {
	if _, err := s.auth.Token(ctx, code); err != nil {
		return profile.Profile{}, fmt.Errorf("token exchange failed: %w", err)
	}
	return s.load(ctx)
}

// Restore signs in with the stored token, or fails with
// requester.ErrNoCredential when there is none
func (s *Session) Restore(ctx context.Context) (profile.Profile, error) {
	if _, err := s.store.Token(ctx); err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return profile.Profile{}, requester.ErrNoCredential
		}
		return profile.Profile{}, err
	}
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) (profile.Profile, error) {
	p, err := s.profile.Get(ctx)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	avatarURL, err := s.avatar.Fetch(ctx, p.Username)
	if err != nil {
		logger.Warn("failed to load avatar", zap.String("username", p.Username), zap.Error(err))
	} else if avatarURL != "" {
		p.AvatarURL = avatarURL
	}

	logger.Info("signed in", zap.String("login", p.LoginName))
	return p, nil
}

// Logout forgets the token and everything loaded with it
func (s *Session) Logout(ctx context.Context) error {
	s.auth.Cancel()
	s.feed.Clean()
	s.profile.Clean()
	s.avatar.Clean()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear bearer token: %w", err)
	}
	logger.Info("signed out")
	return nil
}

// Module provides the Session
var Module = fx.Options(
	fx.Provide(New),
)
