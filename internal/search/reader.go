package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/registry"
	"github.com/contractlink/contract-hub/pkg/jina"
)

// readerStrategy searches within the category's official domain and
// verifies the top hit actually mentions the lead before accepting it.
type readerStrategy struct {
	client jina.Client
	reg    *registry.Registry
}

// NewReaderStrategy returns the domain-scoped search-and-verify strategy.
func NewReaderStrategy(client jina.Client, reg *registry.Registry) Strategy {
	return &readerStrategy{client: client, reg: reg}
}

func (s *readerStrategy) Name() string { return StrategyReader }

func (s *readerStrategy) Find(ctx context.Context, lead model.Lead) (string, error) {
	info, ok := s.reg.Get(lead.Category)
	if !ok || info.SearchDomain == "" {
		// No official domain for this category; let a later strategy try.
		return "", nil
	}

	resp, err := s.client.Search(ctx, s.reg.SearchQuery(lead), jina.WithSite(info.SearchDomain))
	if err != nil {
		return "", eris.Wrap(err, "search: reader domain search")
	}
	if len(resp.Data) == 0 {
		return "", nil
	}

	candidate := resp.Data[0].URL
	if !ValidURL(candidate) {
		return "", nil
	}

	page, err := s.client.Read(ctx, candidate)
	if err != nil {
		return "", eris.Wrap(err, "search: reader fetch candidate")
	}
	if !mentionsLead(page.Data.Content, lead) {
		return "", nil
	}
	return candidate, nil
}

// mentionsLead does a loose containment check of the lead title against the
// page text. Good enough to reject listing indexes and wrong postings.
func mentionsLead(content string, lead model.Lead) bool {
	if content == "" {
		return false
	}
	haystack := strings.ToLower(content)
	title := strings.ToLower(strings.TrimSpace(lead.Title))
	if title == "" {
		return false
	}
	if strings.Contains(haystack, title) {
		return true
	}

	// Fall back to matching a majority of significant title words.
	words := strings.Fields(title)
	matched := 0
	significant := 0
	for _, w := range words {
		if len(w) < 4 {
			continue
		}
		significant++
		if strings.Contains(haystack, w) {
			matched++
		}
	}
	return significant > 0 && matched*2 > significant
}
