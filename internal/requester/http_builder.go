package requester

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/imagefeed/internal/config"
	"go.uber.org/fx"
)

type HTTPRequestBuilderParams struct {
	fx.In

	Config      *config.Config
	AuthManager AuthManager
}

// HTTPRequestBuilder builds authenticated requests against the API base URL
type HTTPRequestBuilder struct {
	baseURL string
	authMgr AuthManager
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(params HTTPRequestBuilderParams) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		baseURL: strings.TrimRight(params.Config.Unsplash.APIURL, "/"),
		authMgr: params.AuthManager,
	}
}

// BuildRequest builds an authenticated request for path. Path segments in
// pathParams are escaped and substituted for their {name} placeholders.
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, method, path string, pathParams map[string]string, query url.Values) (*http.Request, error) {
	for key, value := range pathParams {
		path = strings.ReplaceAll(path, "{"+key+"}", url.PathEscape(value))
	}

	u, err := url.Parse(b.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")

	if err := b.authMgr.ApplyAuth(req); err != nil {
		return nil, err
	}
	return req, nil
}
