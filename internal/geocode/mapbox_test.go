package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("tok")
	c.baseURL = srv.URL
	return c
}

func TestForward(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/New Delhi.json", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"type":"Point","coordinates":[77.2,28.6]}}]}`))
	})

	p, err := c.Forward(context.Background(), "New Delhi")
	require.NoError(t, err)
	assert.Equal(t, Point{Longitude: 77.2, Latitude: 28.6}, p)
}

func TestForwardNoFeature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})

	_, err := c.Forward(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoFeature)
}

func TestForwardUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Forward(context.Background(), "Goa")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFeature)
}

func TestForwardWithoutToken(t *testing.T) {
	_, err := NewClient("").Forward(context.Background(), "Goa")
	assert.ErrorIs(t, err, ErrNoToken)
}
