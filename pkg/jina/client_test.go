package jina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_ReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		w.Write([]byte(`{"code":200,"data":{"title":"RFP listing","url":"https://sam.gov/opp/1","content":"# Janitorial RFP"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithReaderURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://sam.gov/opp/1")
	require.NoError(t, err)
	assert.Equal(t, "RFP listing", resp.Data.Title)
	assert.Contains(t, resp.Data.Content, "Janitorial")
}

func TestRead_RetriesOn503(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code":200,"data":{"title":"ok","url":"u","content":"c"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithReaderURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://example.gov/page")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRead_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithReaderURL(srv.URL))
	_, err := c.Read(context.Background(), "https://example.gov/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_SiteFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sam.gov", r.URL.Query().Get("site"))
		w.Write([]byte(`{"code":200,"data":[{"title":"RFP","url":"https://sam.gov/opp/1"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchURL(srv.URL))
	resp, err := c.Search(context.Background(), "janitorial services GSA", WithSite("sam.gov"))
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "https://sam.gov/opp/1", resp.Data[0].URL)
}

func TestSearch_NoResultsIs422(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchURL(srv.URL))
	resp, err := c.Search(context.Background(), "no such thing")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}
