// Package handlers serves the loopback redirect that ends the Unsplash
// consent flow.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/brizzai/imagefeed/internal/auth/constants"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/utils"
	"go.uber.org/zap"
)

// ErrNotLoopback is returned when the redirect URI cannot be served locally
var ErrNotLoopback = errors.New("redirect uri is not an http loopback address")

// CallbackHandler receives the consent redirect and hands the code over
type CallbackHandler struct {
	path  string
	codes chan string
}

// NewCallbackHandler creates a handler answering on path
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/"
	}
	return &CallbackHandler{
		path:  path,
		codes: make(chan string, 1),
	}
}

// Codes yields the first authorization code received
func (h *CallbackHandler) Codes() <-chan string {
	return h.codes
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != h.path {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		logger.Warn("Consent was not granted",
			zap.String("error", errCode),
			zap.String("description", query.Get("error_description")),
		)
		utils.WriteError(w, errCode, query.Get("error_description"), http.StatusBadRequest)
		return
	}

	code := query.Get(constants.CodeQueryParam)
	if code == "" {
		utils.WriteError(w, "invalid_request", "missing authorization code", http.StatusBadRequest)
		return
	}

	select {
	case h.codes <- code:
		logger.Debug("Authorization code received")
	default:
		// a code is already waiting to be exchanged
	}
	utils.WriteJSON(w, map[string]string{"status": "signed in, you can close this window"})
}

// WaitForCode serves redirectURI on its loopback address until a code
// arrives or ctx is done
func WaitForCode(ctx context.Context, redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect uri: %w", err)
	}
	if u.Scheme != "http" || !isLoopback(u.Hostname()) {
		return "", ErrNotLoopback
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	handler := NewCallbackHandler(u.Path)
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Waiting for consent redirect", zap.String("address", listener.Addr().String()))
	select {
	case code := <-handler.Codes():
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
