// Package tokenstore persists the single bearer token of an installation.
package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no token has been stored
var ErrNotFound = errors.New("bearer token not found in storage")

// Store holds at most one bearer token
type Store interface {
	// Token returns the stored token or ErrNotFound
	Token(ctx context.Context) (string, error)

	// SetToken replaces the stored token
	SetToken(ctx context.Context, token string) error

	// Clear removes the token; clearing an empty store is not an error
	Clear(ctx context.Context) error
}

// New builds the store selected by cfg.Backend
func New(cfg *config.TokenStoreConfig) (Store, error) {
	logger.Debug("opening token store", zap.String("backend", string(cfg.Backend)))

	switch cfg.Backend {
	case config.TokenStoreFile, "":
		return NewFileStore(cfg.Path, cfg.TokenKey), nil
	case config.TokenStoreRedis:
		return NewRedisStore(NewRedisClient(cfg.Redis), cfg.Redis.Prefix, cfg.TokenKey), nil
	case config.TokenStoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported token store backend: %s", cfg.Backend)
	}
}

// Module provides the configured Store
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) (Store, error) {
		return New(&cfg.TokenStore)
	}),
)
