// Package profile fetches and caches the signed-in user's profile and avatar.
package profile

import (
	"context"
	"net/http"
	"sync"

	"github.com/brizzai/imagefeed/internal/events"
	"github.com/brizzai/imagefeed/internal/inflight"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"github.com/brizzai/imagefeed/internal/requester"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	mePath   = "/me"
	userPath = "/users/{username}"

	profileKey = "me"
)

type ServiceParams struct {
	fx.In

	Builder    *requester.HTTPRequestBuilder
	Executor   requester.Executor
	Dispatcher mainloop.Dispatcher
}

// Service fetches GET /me and keeps the last profile it got
type Service struct {
	builder  *requester.HTTPRequestBuilder
	executor requester.Executor
	group    *inflight.Group[Profile]

	mu      sync.RWMutex
	profile *Profile
}

func NewService(params ServiceParams) *Service {
	return &Service{
		builder:  params.Builder,
		executor: params.Executor,
		group:    inflight.NewGroup[Profile]("profile", params.Dispatcher),
	}
}

// FetchProfile loads the profile of the token owner. A call while a fetch
// is running joins it. The cache only changes on success.
func (s *Service) FetchProfile(completion func(Profile, error)) {
	s.group.Do(profileKey,
		func(ctx context.Context) (Profile, error) {
			req, err := s.builder.BuildRequest(ctx, http.MethodGet, mePath, nil, nil)
			if err != nil {
				return Profile{}, err
			}
			result, err := requester.Fetch[profileResult](s.executor, req)
			if err != nil {
				return Profile{}, err
			}
			return newProfile(result), nil
		},
		func(p Profile) error {
			s.mu.Lock()
			s.profile = &p
			s.mu.Unlock()
			logger.Debug("profile cached", zap.String("username", p.Username))
			return nil
		},
		completion,
	)
}

// Get is the blocking form of FetchProfile
func (s *Service) Get(ctx context.Context) (Profile, error) {
	return inflight.Await(ctx, s.FetchProfile)
}

// Profile returns the cached profile
func (s *Service) Profile() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return Profile{}, false
	}
	return *s.profile, true
}

// Clean drops the cache and any fetch in flight
func (s *Service) Clean() {
	s.group.Cancel()
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}

// ImageService fetches the small avatar of a user and announces it on Changes
type ImageService struct {
	builder  *requester.HTTPRequestBuilder
	executor requester.Executor
	group    *inflight.Group[string]
	changes  *events.Bus[AvatarChanged]

	mu        sync.RWMutex
	avatarURL string
}

func NewImageService(params ServiceParams) *ImageService {
	return &ImageService{
		builder:  params.Builder,
		executor: params.Executor,
		group:    inflight.NewGroup[string]("avatar", params.Dispatcher),
		changes:  events.NewBus[AvatarChanged](params.Dispatcher),
	}
}

// FetchProfileImageURL loads the avatar URL of username. Another call for
// the same user joins the running fetch; a call for a different user
// replaces it. On success AvatarChanged is published before completion runs.
func (s *ImageService) FetchProfileImageURL(username string, completion func(string, error)) {
	s.group.Do(username,
		func(ctx context.Context) (string, error) {
			req, err := s.builder.BuildRequest(ctx, http.MethodGet, userPath, map[string]string{"username": username}, nil)
			if err != nil {
				return "", err
			}
			result, err := requester.Fetch[userResult](s.executor, req)
			if err != nil {
				return "", err
			}
			return result.ProfileImage.Small, nil
		},
		func(url string) error {
			s.mu.Lock()
			s.avatarURL = url
			s.mu.Unlock()
			s.changes.Publish(AvatarChanged{URL: url})
			return nil
		},
		completion,
	)
}

// Fetch blocks until the avatar of username is known
func (s *ImageService) Fetch(ctx context.Context, username string) (string, error) {
	return inflight.Await(ctx, func(done func(string, error)) {
		s.FetchProfileImageURL(username, done)
	})
}

// AvatarURL returns the last fetched avatar URL, empty when none
func (s *ImageService) AvatarURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatarURL
}

func (s *ImageService) Changes() *events.Bus[AvatarChanged] {
	return s.changes
}

// Clean drops the cached URL and any fetch in flight
func (s *ImageService) Clean() {
	s.group.Cancel()
	s.mu.Lock()
	s.avatarURL = ""
	s.mu.Unlock()
}

// Module provides the profile and avatar services
var Module = fx.Options(
	fx.Provide(
		NewService,
		NewImageService,
	),
)
