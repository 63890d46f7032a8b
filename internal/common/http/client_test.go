package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, ctx context.Context, c *Client, url string, headers map[string]string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

func TestClient_SetsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, WithUserAgent("TestBot/1.0"))
	resp, err := get(t, context.Background(), c, srv.URL, map[string]string{"Accept": "text/html"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "TestBot/1.0", gotUA)
	assert.Equal(t, "text/html", gotAccept)
}

func TestClient_ExplicitUserAgentWins(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, WithUserAgent("TestBot/1.0"))
	resp, err := get(t, context.Background(), c, srv.URL, map[string]string{"User-Agent": "custom"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "custom", gotUA)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(2*time.Second, WithRateLimit(0.001, 1))

	resp, err := get(t, context.Background(), c, srv.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = get(t, ctx, c, srv.URL, nil)
	assert.Error(t, err)
}
