// Package search locates the official posting URL for a lead through an
// ordered list of strategies, cheapest first.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/contractlink/contract-hub/internal/model"
)

// Strategy is one way of finding a lead's official posting URL. Find
// returns "" with a nil error when the strategy has no answer; errors are
// reserved for operational failures.
type Strategy interface {
	Name() string
	Find(ctx context.Context, lead model.Lead) (string, error)
}

// ValidURL reports whether raw is an absolute http or https URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// QueryHash derives the cache key for a search query.
func QueryHash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
