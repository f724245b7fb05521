package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/pkg/metrics"
)

const departmentTreeCacheKey = "departments:tree"

// TreeCache keeps the serialized forest only; callers always get freshly decoded nodes.
type TreeCache struct {
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewTreeCache(cache repositories.CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) *TreeCache {
	return &TreeCache{cache: cache, ttl: ttl, logger: logger}
}

func (c *TreeCache) Get(ctx context.Context) ([]*dto.DepartmentTreeDTO, bool) {
	raw, err := c.cache.Get(ctx, departmentTreeCacheKey)
	if err != nil {
		if errors.Is(err, repositories.ErrCacheMiss) {
			metrics.TreeCacheRequest(metrics.CacheMiss)
		} else {
			metrics.TreeCacheRequest(metrics.CacheError)
			c.logger.Warn("department tree cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var forest []*dto.DepartmentTreeDTO
	if err := json.Unmarshal([]byte(raw), &forest); err != nil {
		metrics.TreeCacheRequest(metrics.CacheError)
		c.logger.Warn("department tree cache entry is unreadable", zap.Error(err))
		c.Invalidate(ctx)
		return nil, false
	}
	metrics.TreeCacheRequest(metrics.CacheHit)
	return forest, true
}

func (c *TreeCache) Set(ctx context.Context, forest []*dto.DepartmentTreeDTO) {
	serialized, err := json.Marshal(forest)
	if err != nil {
		c.logger.Warn("department tree serialization failed", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, departmentTreeCacheKey, serialized, c.ttl); err != nil {
		c.logger.Warn("department tree cache write failed", zap.Error(err))
	}
}

func (c *TreeCache) Invalidate(ctx context.Context) {
	if err := c.cache.Del(ctx, departmentTreeCacheKey); err != nil {
		c.logger.Warn("department tree cache invalidation failed", zap.Error(err))
	}
}
