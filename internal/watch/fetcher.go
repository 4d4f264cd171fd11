package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
	"github.com/ignite/seatwatch/internal/websoc"
)

// ChunkObserver is notified after every chunk query.
type ChunkObserver func(chunk catalog.Chunk, sections int, err error, elapsed time.Duration)

// Fetcher queries the feed once per chunk and buckets the results by status.
type Fetcher struct {
	feed          Feed
	term          string
	maxConcurrent int
	unavailable   func(error) bool
	observer      ChunkObserver
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithConcurrency caps concurrent chunk queries. Values below 1 mean
// sequential.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) { f.maxConcurrent = n }
}

// WithUnavailable overrides the classifier for connection-level failures.
func WithUnavailable(fn func(error) bool) FetcherOption {
	return func(f *Fetcher) { f.unavailable = fn }
}

// WithChunkObserver installs obs.
func WithChunkObserver(obs ChunkObserver) FetcherOption {
	return func(f *Fetcher) { f.observer = obs }
}

// NewFetcher creates a Fetcher for term.
func NewFetcher(feed Feed, term string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		feed:          feed,
		term:          term,
		maxConcurrent: 1,
		unavailable:   websoc.IsUnavailable,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxConcurrent < 1 {
		f.maxConcurrent = 1
	}
	return f
}

// FetchStatuses runs one query per chunk. A failed chunk is logged and
// skipped; the remaining chunks still contribute. ErrFeedUnavailable is
// returned when the feed refuses connections or when every one of two or
// more chunks fails. A single failed chunk is only skipped.
func (f *Fetcher) FetchStatuses(ctx context.Context, chunks []catalog.Chunk) (domain.StatusBucket, error) {
	bucket := domain.StatusBucket{}
	if len(chunks) == 0 {
		return bucket, nil
	}

	results := make([]domain.StatusBucket, len(chunks))
	failed := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrent)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				failed[i] = true
				return nil
			}
			b, err := f.fetchChunk(gctx, chunk)
			if err != nil {
				failed[i] = true
				if f.unavailable != nil && f.unavailable(err) {
					return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
				}
				logger.Warn("watch: chunk query failed, skipping",
					"chunk", chunk.String(), "codes", chunk.Len(), "error", err)
				return nil
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nFailed := 0
	for i, b := range results {
		if failed[i] {
			nFailed++
			continue
		}
		bucket.Merge(b)
	}
	if nFailed == len(chunks) && nFailed > 1 {
		return nil, fmt.Errorf("%w: all %d chunk queries failed", ErrFeedUnavailable, nFailed)
	}
	return bucket, nil
}

func (f *Fetcher) fetchChunk(ctx context.Context, chunk catalog.Chunk) (domain.StatusBucket, error) {
	start := time.Now()
	sections, err := f.feed.Query(ctx, f.term, chunk.QueryParam())
	if f.observer != nil {
		f.observer(chunk, len(sections), err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	b := domain.StatusBucket{}
	for _, s := range sections {
		if !chunk.Contains(s.Code) {
			continue
		}
		status := s.Status()
		if status == domain.StatusUnknown {
			logger.Debug("watch: ignoring unrecognized status", "code", s.Code.String(), "label", s.Label)
			continue
		}
		b.Add(status, s.Code)
	}
	if len(sections) == 0 {
		logger.Debug("watch: chunk returned no sections", "chunk", chunk.String())
	}
	return b, nil
}

// IsFeedUnavailable reports whether err aborted a cycle because the feed
// was unreachable.
func IsFeedUnavailable(err error) bool {
	return errors.Is(err, ErrFeedUnavailable)
}
