// Package shorten shortens links embedded in notification messages.
package shorten

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/pkg/httpretry"
)

// TinyURL shortens links through the TinyURL api-create endpoint. Results
// are memoized for the life of the process.
type TinyURL struct {
	apiURL string
	client httpretry.HTTPDoer
	cache  sync.Map // map[string]string
}

// NewTinyURL creates a shortener. httpClient may be nil.
func NewTinyURL(cfg config.ShortenerConfig, httpClient httpretry.HTTPDoer) *TinyURL {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &TinyURL{
		apiURL: cfg.APIURL,
		client: httpretry.NewRetryClient(httpClient, cfg.MaxRetries),
	}
}

// Shorten returns the short form of long.
func (t *TinyURL) Shorten(ctx context.Context, long string) (string, error) {
	if v, ok := t.cache.Load(long); ok {
		return v.(string), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"?"+url.Values{"url": {long}}.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building shortener request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortening link: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return "", fmt.Errorf("reading shortener response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("shortener returned unexpected body %q", short)
	}

	t.cache.Store(long, short)
	return short, nil
}

// Noop returns links unchanged. It is used when shortening is disabled.
type Noop struct{}

// Shorten returns long.
func (Noop) Shorten(_ context.Context, long string) (string, error) { return long, nil }
