// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	"deeptrust/internal/feature/analysis/adapters/randomscore"
	"deeptrust/internal/feature/analysis/usecase"
	"deeptrust/internal/platform/cache"
)

// NewScoringProvider creates the ScoringProvider used by the Analysis Service.
// If Redis is available, results are memoised per media URL for ttl.
func NewScoringProvider(rdb *redis.Client, ttl time.Duration) usecase.ScoringProvider {
	provider := randomscore.NewProvider(nil, nil)
	if rdb != nil {
		return cache.NewCachingScoringProvider(rdb, ttl, provider, "analysis")
	}
	return provider
}
