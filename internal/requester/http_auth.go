package requester

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brizzai/imagefeed/internal/tokenstore"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// BearerAuthManager reads the bearer token from the token store on every
// request, so logging out takes effect immediately
type BearerAuthManager struct {
	store tokenstore.Store
}

// NewBearerAuthManager creates a new BearerAuthManager
func NewBearerAuthManager(store tokenstore.Store) *BearerAuthManager {
	return &BearerAuthManager{store: store}
}

// ApplyAuth adds the Authorization header or fails with ErrNoCredential
func (a *BearerAuthManager) ApplyAuth(req *http.Request) error {
	token, err := a.store.Token(req.Context())
	if errors.Is(err, tokenstore.ErrNotFound) {
		return ErrNoCredential
	}
	if err != nil {
		return fmt.Errorf("failed to load bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
