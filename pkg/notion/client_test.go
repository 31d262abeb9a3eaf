package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DefaultRateLimit(t *testing.T) {
	c := NewClient("secret-token")
	nc, ok := c.(*notionClient)
	require.True(t, ok)
	require.NotNil(t, nc.limiter)
	assert.Equal(t, float64(3), float64(nc.limiter.Limit()))
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("secret-token", WithRateLimit(10))
	nc := c.(*notionClient)
	require.NotNil(t, nc.limiter)
	assert.Equal(t, float64(10), float64(nc.limiter.Limit()))
	assert.Equal(t, 10, nc.limiter.Burst())
}

func TestWithRateLimit_Disabled(t *testing.T) {
	c := NewClient("secret-token", WithRateLimit(0))
	nc := c.(*notionClient)
	assert.Nil(t, nc.limiter)
}
