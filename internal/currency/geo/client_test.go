package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"102.89.1.1","country_code":"ng","currency":"ngn","city":"Lagos"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100, 10)

	geo, err := c.Locate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/json/", gotPath)
	assert.Equal(t, "NG", geo.Country)
	assert.Equal(t, "NGN", geo.Currency)
	assert.Equal(t, "102.89.1.1", geo.IP)

	_, err = c.Locate(context.Background(), "102.89.1.1")
	require.NoError(t, err)
	assert.Equal(t, "/102.89.1.1/json/", gotPath)
}

func TestLocate_Errors(t *testing.T) {
	t.Run("service error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, 100, 10).Locate(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RateLimited")
	})

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "blocked", http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, 100, 10).Locate(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("cancelled on deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := NewClient(srv.URL, 100, 10).Locate(ctx, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
