// Package feed pages through the Unsplash photo feed and toggles likes.
package feed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/events"
	"github.com/brizzai/imagefeed/internal/inflight"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"github.com/brizzai/imagefeed/internal/requester"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	photosPath = "/photos"
	likePath   = "/photos/{id}/like"

	defaultPerPage = 10
)

// ErrPageLoading is returned by LoadNextPage while another page is loading
var ErrPageLoading = errors.New("a page is already loading")

type ServiceParams struct {
	fx.In

	Config     *config.Config
	Builder    *requester.HTTPRequestBuilder
	Executor   requester.Executor
	Dispatcher mainloop.Dispatcher
}

// Service holds the photos loaded so far, newest first
type Service struct {
	builder    *requester.HTTPRequestBuilder
	executor   requester.Executor
	dispatcher mainloop.Dispatcher
	changes    *events.Bus[Changed]
	perPage    int

	mu             sync.Mutex
	photos         []Photo
	lastLoadedPage int
	isLoading      bool
	generation     uint64
	cancel         context.CancelFunc
	likeCtx        context.Context
	likeCancel     context.CancelFunc
}

func NewService(params ServiceParams) *Service {
	perPage := defaultPerPage
	if params.Config != nil && params.Config.Unsplash.PerPage > 0 {
		perPage = params.Config.Unsplash.PerPage
	}
	return &Service{
		builder:    params.Builder,
		executor:   params.Executor,
		dispatcher: params.Dispatcher,
		changes:    events.NewBus[Changed](params.Dispatcher),
		perPage:    perPage,
	}
}

// FetchPhotosNextPage requests the page after the last loaded one. While a
// page is loading it does nothing and returns false; completion is then
// never called. On success the page is merged, Changed is published and
// completion runs on the main loop.
func (s *Service) FetchPhotosNextPage(completion func(error)) bool {
	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		return false
	}
	s.isLoading = true
	page := s.lastLoadedPage + 1
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		photos, err := s.fetchPage(ctx, page)

		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			logger.Debug("discarding page loaded before clean", zap.Int("page", page))
			return
		}
		s.isLoading = false
		s.cancel = nil
		if err == nil {
			s.photos = append(s.photos, photos...)
			sortNewestFirst(s.photos)
			s.lastLoadedPage = page
		}
		s.mu.Unlock()

		if err != nil {
			logger.Warn("failed to load photos page", zap.Int("page", page), zap.Error(err))
		} else {
			logger.Debug("photos page loaded", zap.Int("page", page), zap.Int("count", len(photos)))
			s.changes.Publish(Changed{})
		}
		if completion != nil {
			s.dispatcher.Async(func() { completion(err) })
		}
	}()
	return true
}

// LoadNextPage is the blocking form of FetchPhotosNextPage
func (s *Service) LoadNextPage(ctx context.Context) error {
	_, err := inflight.Await(ctx, func(done func(struct{}, error)) {
		if !s.FetchPhotosNextPage(func(err error) { done(struct{}{}, err) }) {
			done(struct{}{}, ErrPageLoading)
		}
	})
	return err
}

func (s *Service) fetchPage(ctx context.Context, page int) ([]Photo, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(s.perPage)},
	}
	req, err := s.builder.BuildRequest(ctx, http.MethodGet, photosPath, nil, query)
	if err != nil {
		return nil, err
	}
	results, err := requester.Fetch[[]photoResult](s.executor, req)
	if err != nil {
		return nil, err
	}
	photos := make([]Photo, 0, len(results))
	for _, r := range results {
		photos = append(photos, r.toPhoto())
	}
	return photos, nil
}

// ChangeLike likes (POST) or unlikes (DELETE) a photo. On success the
// cached photo's Liked becomes isLike and Changed{PhotoID} is published if
// the photo is loaded. On failure nothing changes. A like still running
// when Clean is called is cancelled and its completion never runs.
func (s *Service) ChangeLike(photoID string, isLike bool, completion func(error)) {
	method := http.MethodDelete
	if isLike {
		method = http.MethodPost
	}

	s.mu.Lock()
	if s.likeCtx == nil {
		s.likeCtx, s.likeCancel = context.WithCancel(context.Background())
	}
	ctx := s.likeCtx
	gen := s.generation
	s.mu.Unlock()

	done := func(err error) {
		if completion != nil {
			s.dispatcher.Async(func() { completion(err) })
		}
	}

	go func() {
		req, err := s.builder.BuildRequest(ctx, method, likePath, map[string]string{"id": photoID}, nil)
		if err != nil {
			s.mu.Lock()
			stale := gen != s.generation
			s.mu.Unlock()
			if !stale {
				done(err)
			}
			return
		}
		s.executor.Data(req, func(_ []byte, err error) {
			s.mu.Lock()
			if gen != s.generation {
				s.mu.Unlock()
				logger.Debug("discarding like finished after clean", zap.String("photo_id", photoID))
				return
			}
			found := false
			if err == nil {
				for i := range s.photos {
					if s.photos[i].ID == photoID {
						s.photos[i].Liked = isLike
						found = true
						break
					}
				}
			}
			s.mu.Unlock()

			if err != nil {
				logger.Warn("failed to change like",
					zap.String("photo_id", photoID),
					zap.Bool("like", isLike),
					zap.Error(err),
				)
			} else if found {
				s.changes.Publish(Changed{PhotoID: photoID})
			}
			done(err)
		})
	}()
}

// Like is the blocking form of ChangeLike
func (s *Service) Like(ctx context.Context, photoID string, isLike bool) error {
	_, err := inflight.Await(ctx, func(done func(struct{}, error)) {
		s.ChangeLike(photoID, isLike, func(err error) { done(struct{}{}, err) })
	})
	return err
}

// Photos returns a copy of the loaded photos, newest first
func (s *Service) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Photo, len(s.photos))
	copy(out, s.photos)
	return out
}

// Photo looks up a loaded photo by id
func (s *Service) Photo(id string) (Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.ID == id {
			return p, true
		}
	}
	return Photo{}, false
}

// LastLoadedPage returns the last page merged, 0 before the first
func (s *Service) LastLoadedPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoadedPage
}

func (s *Service) Changes() *events.Bus[Changed] {
	return s.changes
}

// Clean forgets every loaded photo and the page cursor. A page or like
// still running is cancelled and its result discarded.
func (s *Service) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.likeCancel != nil {
		s.likeCancel()
		s.likeCtx, s.likeCancel = nil, nil
	}
	s.generation++
	s.photos = nil
	s.lastLoadedPage = 0
	s.isLoading = false
}

// Module provides the feed Service
var Module = fx.Options(
	fx.Provide(NewService),
)
