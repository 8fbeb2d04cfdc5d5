package requester_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{ tokenstore.Store }

func (brokenStore) Token(context.Context) (string, error) { return "", errors.New("redis down") }

func TestBearerAuthManager_ApplyAuth(t *testing.T) {
	tests := []struct {
		name      string
		store     func() tokenstore.Store
		wantErr   error
		anyErr    bool
		checkAuth func(t *testing.T, req *http.Request)
	}{
		{
			name: "Stored token",
			store: func() tokenstore.Store {
				s := tokenstore.NewMemoryStore()
				_ = s.SetToken(context.Background(), "test-token")
				return s
			},
			checkAuth: func(t *testing.T, req *http.Request) {
				assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			},
		},
		{
			name:    "No token",
			store:   func() tokenstore.Store { return tokenstore.NewMemoryStore() },
			wantErr: requester.ErrNoCredential,
		},
		{
			name:   "Store failure",
			store:  func() tokenstore.Store { return brokenStore{} },
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := requester.NewBearerAuthManager(tt.store())
			req, err := http.NewRequest(http.MethodGet, "https://api.unsplash.com/me", nil)
			require.NoError(t, err)

			err = manager.ApplyAuth(req)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, requester.ErrNoCredential)
			default:
				require.NoError(t, err)
				tt.checkAuth(t, req)
			}
		})
	}
}

func TestHTTPRequestBuilder_BuildRequest(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.SetToken(context.Background(), "tok"))

	builder := requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
		Config:      &config.Config{Unsplash: config.UnsplashConfig{APIURL: "https://api.unsplash.com/"}},
		AuthManager: requester.NewBearerAuthManager(store),
	})

	req, err := builder.BuildRequest(context.Background(), http.MethodPost, "/photos/{id}/like",
		map[string]string{"id": "a b/c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/photos/a%20b%2Fc/like", req.URL.EscapedPath())
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "v1", req.Header.Get("Accept-Version"))

	req, err = builder.BuildRequest(context.Background(), http.MethodGet, "/photos", nil,
		url.Values{"page": {"2"}, "per_page": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, "2", req.URL.Query().Get("page"))
	assert.Equal(t, "10", req.URL.Query().Get("per_page"))
}

func TestHTTPRequestBuilder_NoCredential(t *testing.T) {
	builder := requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
		Config:      &config.Config{Unsplash: config.UnsplashConfig{APIURL: "https://api.unsplash.com"}},
		AuthManager: requester.NewBearerAuthManager(tokenstore.NewMemoryStore()),
	})

	_, err := builder.BuildRequest(context.Background(), http.MethodGet, "/me", nil, nil)
	assert.ErrorIs(t, err, requester.ErrNoCredential)
}
