package repositories

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key ...string) error
}

type noopCacheRepository struct{}

// NewNoopCacheRepository is used when no Redis address is configured.
func NewNoopCacheRepository() CacheRepositoryInterface {
	return noopCacheRepository{}
}

func (noopCacheRepository) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (noopCacheRepository) Get(context.Context, string) (string, error) {
	return "", ErrCacheMiss
}

func (noopCacheRepository) Del(context.Context, ...string) error {
	return nil
}
