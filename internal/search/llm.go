package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/registry"
	"github.com/contractlink/contract-hub/pkg/anthropic"
)

// llmStrategy asks the model for the official posting URL. Last in the
// chain: most expensive and least precise.
type llmStrategy struct {
	client    anthropic.Client
	reg       *registry.Registry
	modelName string
}

// NewLLMStrategy returns the model-backed lookup strategy.
func NewLLMStrategy(client anthropic.Client, reg *registry.Registry, modelName string) Strategy {
	return &llmStrategy{client: client, reg: reg, modelName: modelName}
}

func (s *llmStrategy) Name() string { return StrategyLLM }

func (s *llmStrategy) Find(ctx context.Context, lead model.Lead) (string, error) {
	prompt, err := s.reg.EnrichmentPrompt(lead)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.modelName,
		MaxTokens: 256,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "search: llm lookup")
	}
	resp.Usage.LogCost(s.modelName, "search")

	answer := strings.TrimSpace(resp.Text())
	if answer == "" || strings.EqualFold(answer, "UNAVAILABLE") {
		return "", nil
	}

	// Models sometimes wrap the URL in prose; prefer the first token that
	// parses as a URL, otherwise surface the raw answer for the caller to
	// judge.
	for _, tok := range strings.Fields(answer) {
		tok = strings.Trim(tok, `<>"'.,)`)
		if ValidURL(tok) {
			return tok, nil
		}
	}
	return answer, nil
}
