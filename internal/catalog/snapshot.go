package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// ErrEmptyCatalog is returned when enumeration yields no codes at all.
var ErrEmptyCatalog = errors.New("catalog: no section codes found for term")

// Lister enumerates every section code offered in a term.
type Lister interface {
	ListCodes(ctx context.Context, term string) ([]domain.Code, error)
}

// Cache persists an enumerated catalog between process restarts.
type Cache interface {
	Load(ctx context.Context, term string) ([]domain.Code, bool, error)
	Save(ctx context.Context, term string, codes []domain.Code) error
}

// Snapshot is the chunked catalog for one term. It is computed once and
// reused by every cycle of the process.
type Snapshot struct {
	Term     string
	Window   int
	Codes    []domain.Code
	Chunks   []Chunk
	LoadedAt time.Time
	Cached   bool
}

// NewSnapshot sorts, deduplicates and chunks codes.
func NewSnapshot(term string, window int, codes []domain.Code) *Snapshot {
	sorted := domain.SortCodes(append([]domain.Code(nil), codes...))
	return &Snapshot{
		Term:     term,
		Window:   window,
		Codes:    sorted,
		Chunks:   Split(sorted, window),
		LoadedAt: time.Now(),
	}
}

// LoadSnapshot returns the term's catalog from cache when available and
// enumerates it through lister otherwise. Cache failures are logged and
// never fatal; cache may be nil.
func LoadSnapshot(ctx context.Context, term string, window int, lister Lister, cache Cache) (*Snapshot, error) {
	if cache != nil {
		codes, ok, err := cache.Load(ctx, term)
		switch {
		case err != nil:
			logger.Warn("catalog cache load failed", "term", term, "error", err)
		case ok && len(codes) > 0:
			snap := NewSnapshot(term, window, codes)
			snap.Cached = true
			return snap, nil
		}
	}

	codes, err := lister.ListCodes(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("enumerating catalog for %s: %w", term, err)
	}
	if len(codes) == 0 {
		return nil, ErrEmptyCatalog
	}

	snap := NewSnapshot(term, window, codes)
	if cache != nil {
		if err := cache.Save(ctx, term, snap.Codes); err != nil {
			logger.Warn("catalog cache save failed", "term", term, "error", err)
		}
	}
	return snap, nil
}
