package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server *httptest.Server
	store  *tokenstore.MemoryStore
	loop   *mainloop.Loop
	params ServiceParams
	meHits int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{store: tokenstore.NewMemoryStore(), loop: mainloop.New()}
	require.NoError(t, f.store.SetToken(context.Background(), "tok"))

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			atomic.AddInt32(&f.meHits, 1)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go f.loop.Run(ctx)
	t.Cleanup(cancel)

	cfg := &config.Config{Unsplash: config.UnsplashConfig{APIURL: f.server.URL}}
	f.params = ServiceParams{
		Builder: requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
			Config:      cfg,
			AuthManager: requester.NewBearerAuthManager(f.store),
		}),
		Executor:   requester.NewHTTPRequester(requester.HTTPRequesterParams{Config: cfg, Dispatcher: f.loop}),
		Dispatcher: f.loop,
	}
	return f
}

func unsplashAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/me":
		_, _ = w.Write([]byte(`{
			"username": "jdoe",
			"first_name": "Jane",
			"last_name": null,
			"bio": "Shooting film",
			"profile_image": {"small": "https://images.unsplash.com/me-small"}
		}`))
	case "/users/jdoe":
		_, _ = w.Write([]byte(`{"username":"jdoe","profile_image":{"small":"https://images.unsplash.com/jdoe-small","medium":"m"}}`))
	default:
		http.NotFound(w, r)
	}
}

func TestService_FetchProfile(t *testing.T) {
	f := newFixture(t, unsplashAPI)
	service := NewService(f.params)

	_, ok := service.Profile()
	assert.False(t, ok)

	p, err := service.Get(context.Background())
	require.NoError(t, err)

	want := Profile{
		Username:  "jdoe",
		Name:      "Jane",
		LoginName: "@jdoe",
		Bio:       "Shooting film",
		AvatarURL: "https://images.unsplash.com/me-small",
	}
	assert.Equal(t, want, p)

	cached, ok := service.Profile()
	require.True(t, ok)
	assert.Equal(t, want, cached)
}

func TestService_ConcurrentFetchesJoin(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		unsplashAPI(w, r)
	})
	service := NewService(f.params)

	results := make(chan error, 2)
	service.FetchProfile(func(_ Profile, err error) { results <- err })
	service.FetchProfile(func(_ Profile, err error) { results <- err })
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("completion not called")
		}
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.meHits))
}

func TestService_DecodeFailureKeepsCache(t *testing.T) {
	var broken atomic.Bool
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			_, _ = w.Write([]byte(`{"username": 42`))
			return
		}
		unsplashAPI(w, r)
	})
	service := NewService(f.params)

	first, err := service.Get(context.Background())
	require.NoError(t, err)

	broken.Store(true)
	_, err = service.Get(context.Background())
	var decodeErr *requester.DecodeError
	require.True(t, errors.As(err, &decodeErr))

	cached, ok := service.Profile()
	require.True(t, ok)
	assert.Equal(t, first, cached)
}

func TestService_NoCredential(t *testing.T) {
	f := newFixture(t, unsplashAPI)
	require.NoError(t, f.store.Clear(context.Background()))
	service := NewService(f.params)

	_, err := service.Get(context.Background())
	assert.ErrorIs(t, err, requester.ErrNoCredential)
	assert.Zero(t, atomic.LoadInt32(&f.meHits))
}

func TestService_Clean(t *testing.T) {
	f := newFixture(t, unsplashAPI)
	service := NewService(f.params)

	_, err := service.Get(context.Background())
	require.NoError(t, err)

	service.Clean()
	_, ok := service.Profile()
	assert.False(t, ok)
}

func TestImageService_FetchPublishes(t *testing.T) {
	f := newFixture(t, unsplashAPI)
	service := NewImageService(f.params)

	var order []string
	notified := make(chan AvatarChanged, 1)
	service.Changes().Subscribe(func(ev AvatarChanged) {
		order = append(order, "notification")
		notified <- ev
	})

	done := make(chan struct{})
	service.FetchProfileImageURL("jdoe", func(url string, err error) {
		assert.NoError(t, err)
		assert.Equal(t, "https://images.unsplash.com/jdoe-small", url)
		order = append(order, "completion")
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("completion not called")
	}
	require.NoError(t, f.loop.Sync(context.Background(), func() {
		assert.Equal(t, []string{"notification", "completion"}, order)
	}))

	ev := <-notified
	assert.Equal(t, "https://images.unsplash.com/jdoe-small", ev.URL)
	assert.Equal(t, "https://images.unsplash.com/jdoe-small", service.AvatarURL())
}

func TestImageService_FailureDoesNotNotify(t *testing.T) {
	f := newFixture(t, unsplashAPI)
	service := NewImageService(f.params)

	var notifications int32
	service.Changes().Subscribe(func(AvatarChanged) { atomic.AddInt32(&notifications, 1) })

	_, err := service.Fetch(context.Background(), "nobody")
	assert.True(t, requester.IsStatus(err, http.StatusNotFound))

	require.NoError(t, f.loop.Sync(context.Background(), func() {}))
	assert.Zero(t, atomic.LoadInt32(&notifications))
	assert.Empty(t, service.AvatarURL())
}

func TestImageService_OtherUserSupersedes(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/slow" {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		unsplashAPI(w, r)
	})
	defer close(release)
	service := NewImageService(f.params)

	var staleCalls int32
	service.FetchProfileImageURL("slow", func(string, error) { atomic.AddInt32(&staleCalls, 1) })

	url, err := service.Fetch(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "https://images.unsplash.com/jdoe-small", url)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, f.loop.Sync(context.Background(), func() {}))
	assert.Zero(t, atomic.LoadInt32(&staleCalls))
}
