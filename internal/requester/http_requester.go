package requester

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/mainloop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Executor performs a built request and returns the raw payload of a 2xx
// response, either blocking or with the completion on the main loop
type Executor interface {
	Execute(req *http.Request) ([]byte, error)
	Data(req *http.Request, completion func([]byte, error))
}

// HTTPRequester executes requests against the Unsplash API
type HTTPRequester struct {
	client     *http.Client
	dispatcher mainloop.Dispatcher
}

type HTTPRequesterParams struct {
	fx.In

	Config     *config.Config
	Dispatcher mainloop.Dispatcher
}

// NewHTTPRequester creates a new HTTPRequester using the configured timeout
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	timeout := 30 * time.Second
	if params.Config != nil && params.Config.HTTP.Timeout > 0 {
		timeout = params.Config.HTTP.Timeout
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: timeout,
		},
		dispatcher: params.Dispatcher,
	}
}

// Client exposes the underlying client so the OAuth exchange shares it
func (r *HTTPRequester) Client() *http.Client {
	return r.client
}

// Execute performs req and classifies the outcome: transport failure,
// missing response, non-2xx status, or the body on success.
func (r *HTTPRequester) Execute(req *http.Request) ([]byte, error) {
	logger.Debug("request route", zap.String("method", req.Method), zap.String("url", req.URL.Redacted()))

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Error("failed to execute request", zap.String("url", req.URL.Redacted()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp == nil || resp.Body == nil {
		return nil, ErrInvalidResponse
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("unexpected status",
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode, Body: body}
	}

	return body, nil
}

// Data runs req in the background and delivers the outcome on the main loop
func (r *HTTPRequester) Data(req *http.Request, completion func([]byte, error)) {
	go func() {
		body, err := r.Execute(req)
		r.dispatcher.Async(func() {
			completion(body, err)
		})
	}()
}
