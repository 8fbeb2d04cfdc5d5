package providers

import (
	"context"

	"github.com/brizzai/imagefeed/internal/auth/models"
)

// Provider performs the authorization-code flow against an OAuth server
type Provider interface {
	// AuthURL returns the consent page URL the user has to open
	AuthURL(state string) string

	// Exchange trades an authorization code for a bearer token
	Exchange(ctx context.Context, code string) (*models.OAuthToken, error)
}
