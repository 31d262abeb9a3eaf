package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/registry"
)

// CacheStore is the persistence slice used for search result caching.
type CacheStore interface {
	GetCachedSearch(ctx context.Context, queryHash string) ([]byte, error)
	SetCachedSearch(ctx context.Context, queryHash string, result []byte, ttl time.Duration) error
}

// Chain tries each strategy in order and returns the first valid URL.
type Chain struct {
	strategies []Strategy
	cache      CacheStore
	reg        *registry.Registry
	cacheTTL   time.Duration
}

// NewChain builds a Chain. cache may be nil to disable write-back.
func NewChain(strategies []Strategy, cache CacheStore, reg *registry.Registry, cacheTTL time.Duration) *Chain {
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &Chain{strategies: strategies, cache: cache, reg: reg, cacheTTL: cacheTTL}
}

// Find runs the strategies in order and returns the first non-empty
// candidate. A strategy returning no result or an error does not stop the
// chain; only context cancellation does. The caller judges the candidate;
// only candidates that parse as URLs are written back to the cache.
func (c *Chain) Find(ctx context.Context, lead model.Lead) (string, error) {
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "search: chain canceled")
		}

		found, err := s.Find(ctx, lead)
		if err != nil {
			zap.L().Warn("search: strategy failed",
				zap.String("strategy", s.Name()),
				zap.Int64("lead_id", lead.ID),
				zap.Error(err),
			)
			continue
		}
		found = strings.TrimSpace(found)
		if found == "" {
			continue
		}

		zap.L().Debug("search: candidate",
			zap.String("strategy", s.Name()),
			zap.Int64("lead_id", lead.ID),
			zap.String("url", found),
		)

		if c.cache != nil && s.Name() != StrategyCache && ValidURL(found) {
			key := QueryHash(c.reg.SearchQuery(lead))
			if err := c.cache.SetCachedSearch(ctx, key, []byte(found), c.cacheTTL); err != nil {
				zap.L().Warn("search: cache write-back failed", zap.Error(err))
			}
		}

		return found, nil
	}

	return "", nil
}

// Build assembles strategies by name in the given order. Unknown names are
// skipped with a warning so a config typo degrades instead of breaking runs.
func Build(order []string, available map[string]Strategy) []Strategy {
	var out []Strategy
	for _, name := range order {
		s, ok := available[name]
		if !ok {
			zap.L().Warn("search: unknown strategy in order, skipping", zap.String("strategy", name))
			continue
		}
		out = append(out, s)
	}
	return out
}
