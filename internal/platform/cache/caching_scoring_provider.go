// Package cache provides caching implementations for provider interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/shared/media"
)

// CachingScoringProvider decorates a ScoringProvider with Redis caching so
// that repeated analyses of the same media return the same result while the
// entry lives.
type CachingScoringProvider struct {
	inner     usecase.ScoringProvider
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.ScoringProvider = (*CachingScoringProvider)(nil)

// NewCachingScoringProvider decorates a ScoringProvider with Redis caching.
// If ttl is 0, it defaults to 10 minutes. If namespace is empty, it uses "analysis".
func NewCachingScoringProvider(rdb *redis.Client, ttl time.Duration, inner usecase.ScoringProvider, namespace string) *CachingScoringProvider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if namespace == "" {
		namespace = "analysis"
	}
	return &CachingScoringProvider{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Score returns the cached result for the media, falling back to the inner provider.
func (c *CachingScoringProvider) Score(ctx context.Context, req media.AnalysisRequest) (*media.AnalysisResult, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Score(ctx, req)
	}

	key := c.cacheKey(req)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out media.AnalysisResult
		if err := json.Unmarshal(b, &out); err == nil && out.Validate() == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the inner provider
	out, err := c.inner.Score(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// cacheKey generates a cache key for a media URL and type.
func (c *CachingScoringProvider) cacheKey(req media.AnalysisRequest) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(string(req.Type)), safe(req.URL))
}
