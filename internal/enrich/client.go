// Package enrich fills missing source URLs on leads through the search
// chain, one bounded batch at a time.
package enrich

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/resilience"
	"github.com/contractlink/contract-hub/internal/search"
)

// Status classifies a single lookup attempt.
type Status string

const (
	// StatusFilled means a usable URL was found.
	StatusFilled Status = "filled"
	// StatusUnavailable means no source could identify the posting.
	StatusUnavailable Status = "unavailable"
	// StatusInvalid means a candidate came back but it is not a URL.
	StatusInvalid Status = "invalid"
	// StatusFailed means the lookup itself failed after a retry.
	StatusFailed Status = "failed"
)

// Result is the outcome of one lead lookup.
type Result struct {
	Status Status
	URL    string
	Detail string
}

// Finder is the search chain surface the client depends on.
type Finder interface {
	Find(ctx context.Context, lead model.Lead) (string, error)
}

// Client runs a single lead lookup with a per-attempt timeout and one
// retry on transient failure.
type Client struct {
	finder  Finder
	timeout time.Duration
}

// NewClient creates an enrichment client. timeout bounds each attempt.
func NewClient(finder Finder, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{finder: finder, timeout: timeout}
}

// Lookup resolves the official posting URL for a lead. It never returns an
// error; every failure mode maps to a Result status so one bad lead cannot
// abort a batch.
func (c *Client) Lookup(ctx context.Context, lead model.Lead) Result {
	candidate, err := resilience.DoVal(ctx, resilience.RetryConfig{
		Attempts:  2,
		BaseDelay: 2 * time.Second,
		ShouldRetry: func(err error) bool {
			return resilience.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
		},
		OnRetry: resilience.RetryLogger("search", "lookup"),
	}, func(ctx context.Context) (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.finder.Find(attemptCtx, lead)
	})
	if err != nil {
		return Result{Status: StatusFailed, Detail: err.Error()}
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return Result{Status: StatusUnavailable}
	}
	if !search.ValidURL(candidate) {
		return Result{Status: StatusInvalid, Detail: candidate}
	}
	return Result{Status: StatusFilled, URL: candidate}
}
