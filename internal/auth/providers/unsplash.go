package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/brizzai/imagefeed/internal/auth/constants"
	"github.com/brizzai/imagefeed/internal/auth/models"
	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/requester"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type UnsplashProvider struct {
	oauth2Config *oauth2.Config
	client       *http.Client
}

// NewUnsplashProvider configures the exchange against cfg.AuthURL. The
// client secret travels in the request body, as Unsplash expects.
func NewUnsplashProvider(cfg *config.UnsplashConfig, client *http.Client) *UnsplashProvider {
	base := strings.TrimRight(cfg.AuthURL, "/")

	var scopes []string
	for _, s := range strings.Split(cfg.Scope, constants.ScopeSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}

	return &UnsplashProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.AccessKey,
			ClientSecret: cfg.SecretKey,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + constants.AuthorizePath,
				TokenURL:  base + constants.TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
	}
}

func (p *UnsplashProvider) AuthURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades code for a bearer token. A rejected code is a
// StatusError, a 2xx body that is not a usable token is a DecodeError and
// anything that kept the body from arriving is a transport error.
func (p *UnsplashProvider) Exchange(ctx context.Context, code string) (*models.OAuthToken, error) {
	client := http.DefaultClient
	if p.client != nil {
		client = p.client
	}
	recorder := &bodyRecorder{base: client.Transport}
	recording := *client
	recording.Transport = recorder
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &recording)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			logger.Warn("token exchange rejected",
				zap.Int("status", retrieveErr.Response.StatusCode),
				zap.String("error_code", retrieveErr.ErrorCode),
			)
			return nil, &requester.StatusError{Code: retrieveErr.Response.StatusCode, Body: retrieveErr.Body}
		}
		if payload, ok := recorder.payload(); ok && ctx.Err() == nil {
			logger.Warn("token response not understood", zap.Error(err), zap.ByteString("payload", payload))
			return nil, &requester.DecodeError{Err: err, Payload: payload}
		}
		logger.Error("token exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", requester.ErrTransport, err)
	}

	result := &models.OAuthToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		result.Scope = scope
	}
	result.CreatedAt = unixSeconds(token.Extra("created_at"))
	return result, nil
}

// bodyRecorder keeps a copy of the token response body as oauth2 reads it
type bodyRecorder struct {
	base http.RoundTripper

	mu       sync.Mutex
	buf      bytes.Buffer
	received bool
	complete bool
}

func (r *bodyRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := r.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}
	r.mu.Lock()
	r.received = true
	r.mu.Unlock()
	resp.Body = &recordingBody{ReadCloser: resp.Body, recorder: r}
	return resp, nil
}

// payload returns the body if a response arrived and was read to the end
func (r *bodyRecorder) payload() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.received || !r.complete {
		return nil, false
	}
	return append([]byte(nil), r.buf.Bytes()...), true
}

type recordingBody struct {
	io.ReadCloser
	recorder *bodyRecorder
}

func (b *recordingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.recorder.mu.Lock()
	b.recorder.buf.Write(p[:n])
	if err == io.EOF {
		b.recorder.complete = true
	}
	b.recorder.mu.Unlock()
	return n, err
}

func unixSeconds(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
