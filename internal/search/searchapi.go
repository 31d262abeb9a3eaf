package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/registry"
	"github.com/contractlink/contract-hub/pkg/jina"
)

// searchAPIStrategy takes the first plausible hit of an open web search.
type searchAPIStrategy struct {
	client jina.Client
	reg    *registry.Registry
}

// NewSearchAPIStrategy returns the open web search strategy.
func NewSearchAPIStrategy(client jina.Client, reg *registry.Registry) Strategy {
	return &searchAPIStrategy{client: client, reg: reg}
}

func (s *searchAPIStrategy) Name() string { return StrategySearchAPI }

func (s *searchAPIStrategy) Find(ctx context.Context, lead model.Lead) (string, error) {
	resp, err := s.client.Search(ctx, s.reg.SearchQuery(lead))
	if err != nil {
		return "", eris.Wrap(err, "search: web search")
	}
	for _, hit := range resp.Data {
		if ValidURL(hit.URL) {
			return hit.URL, nil
		}
	}
	return "", nil
}
