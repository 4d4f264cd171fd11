package shorten

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTinyURL_ShortensAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "https://antalmanac.com/?code=00200", r.URL.Query().Get("url"))
		w.Write([]byte("https://tinyurl.com/abc123\n"))
	}))
	defer srv.Close()

	s := NewTinyURL(config.ShortenerConfig{APIURL: srv.URL, MaxRetries: 0}, srv.Client())

	short, err := s.Shorten(context.Background(), "https://antalmanac.com/?code=00200")
	require.NoError(t, err)
	assert.Equal(t, "https://tinyurl.com/abc123", short)

	again, err := s.Shorten(context.Background(), "https://antalmanac.com/?code=00200")
	require.NoError(t, err)
	assert.Equal(t, short, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTinyURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "bad-body" {
			w.Write([]byte("Error"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewTinyURL(config.ShortenerConfig{APIURL: srv.URL, MaxRetries: 0}, srv.Client())

	_, err := s.Shorten(context.Background(), "https://example.com")
	assert.Error(t, err)

	_, err = s.Shorten(context.Background(), "bad-body")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	out, err := Noop{}.Shorten(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", out)
}
