package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/seatwatch/internal/domain"
)

const catalogKeyPrefix = "seatwatch:catalog:"

// CatalogCache stores a term's enumerated section codes in Redis.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a cache whose entries expire after ttl.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func catalogKey(term string) string { return catalogKeyPrefix + term }

// Load returns the cached codes for term. ok is false on a miss.
func (c *CatalogCache) Load(ctx context.Context, term string) ([]domain.Code, bool, error) {
	raw, err := c.client.Get(ctx, catalogKey(term)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading catalog cache: %w", err)
	}

	var stored []string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("decoding catalog cache: %w", err)
	}
	codes, err := domain.Codes(stored...)
	if err != nil {
		return nil, false, fmt.Errorf("decoding catalog cache: %w", err)
	}
	return codes, true, nil
}

// Save replaces the cached codes for term.
func (c *CatalogCache) Save(ctx context.Context, term string, codes []domain.Code) error {
	stored := make([]string, len(codes))
	for i, code := range codes {
		stored[i] = code.String()
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding catalog cache: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey(term), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing catalog cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached catalog for term.
func (c *CatalogCache) Invalidate(ctx context.Context, term string) error {
	return c.client.Del(ctx, catalogKey(term)).Err()
}
