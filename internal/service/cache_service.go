package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

const (
	feeCachePrefix  = "fees:list:"
	feeCachePattern = feeCachePrefix + "*"
	defaultFeeTTL   = 10 * time.Minute
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FeeCache keeps fee catalog listings per (unit, department) filter. A nil or
// disabled cache always misses. Progress figures never go through it.
type FeeCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewFeeCache constructs a FeeCache.
func NewFeeCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *FeeCache {
	if ttl <= 0 {
		ttl = defaultFeeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *FeeCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Lookup returns the cached listing for filter and whether it was a hit.
// Backend failures count as misses.
func (c *FeeCache) Lookup(ctx context.Context, filter models.FeeFilter) ([]models.Fee, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := feeCacheKey(filter)
	start := time.Now()
	var fees []models.Fee
	err := c.repo.Get(ctx, key, &fees)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("fee cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return fees, true
}

// Store caches fees as the listing for filter.
func (c *FeeCache) Store(ctx context.Context, filter models.FeeFilter, fees []models.Fee) {
	if !c.Enabled() {
		return
	}
	key := feeCacheKey(filter)
	start := time.Now()
	err := c.repo.Set(ctx, key, fees, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("fee cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached listing.
func (c *FeeCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.repo.DeleteByPattern(ctx, feeCachePattern); err != nil {
		c.logger.Warn("fee cache invalidate failed", zap.Error(err))
		return err
	}
	return nil
}

func feeCacheKey(filter models.FeeFilter) string {
	unit, dept := "all", "all"
	if filter.UnitID != nil {
		unit = string(*filter.UnitID)
	}
	if filter.Department != nil {
		dept = strings.ToLower(strings.TrimSpace(*filter.Department))
	}
	return feeCachePrefix + unit + ":" + dept
}
