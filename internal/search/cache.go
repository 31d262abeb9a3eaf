package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/registry"
)

// Strategy names, used in the search.order config key.
const (
	StrategyCache     = "cache"
	StrategyReader    = "reader"
	StrategySearchAPI = "searchapi"
	StrategyLLM       = "llm"
)

// cacheStrategy answers from previously resolved queries.
type cacheStrategy struct {
	store CacheStore
	reg   *registry.Registry
}

// NewCacheStrategy returns the cache lookup strategy.
func NewCacheStrategy(store CacheStore, reg *registry.Registry) Strategy {
	return &cacheStrategy{store: store, reg: reg}
}

func (s *cacheStrategy) Name() string { return StrategyCache }

func (s *cacheStrategy) Find(ctx context.Context, lead model.Lead) (string, error) {
	key := QueryHash(s.reg.SearchQuery(lead))
	cached, err := s.store.GetCachedSearch(ctx, key)
	if err != nil {
		return "", eris.Wrap(err, "search: cache lookup")
	}
	if cached == nil {
		return "", nil
	}
	return string(cached), nil
}
