package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps the token in Redis, useful when several processes
// (CLI and MCP server) share one login
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	key    string
}

// NewRedisClient creates a client from the token store settings
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisStore(client redis.UniversalClient, prefix, key string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		key:    key,
	}
}

func (s *RedisStore) redisKey() string {
	return fmt.Sprintf("%s:token:%s", s.prefix, s.key)
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.redisKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	// Unsplash bearer tokens do not expire, so no TTL
	if err := s.client.Set(ctx, s.redisKey(), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.redisKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
