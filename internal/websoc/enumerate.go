package websoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// Enumerator lists a term's catalog by sweeping the code space in
// window-wide range queries.
type Enumerator struct {
	client *Client
	window int
	max    int
}

// NewEnumerator creates an Enumerator over codes 0..max.
func NewEnumerator(client *Client, window, max int) *Enumerator {
	if window <= 0 {
		window = 900
	}
	return &Enumerator{client: client, window: window, max: max}
}

// ListCodes returns every section code WebSoc reports for term. Individual
// range failures are skipped; the sweep fails only when WebSoc is
// unreachable or every range failed.
func (e *Enumerator) ListCodes(ctx context.Context, term string) ([]domain.Code, error) {
	seen := make(domain.CodeSet)
	var ranges, failed int

	for lo := 0; lo <= e.max; lo += e.window + 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := lo + e.window
		if hi > e.max {
			hi = e.max
		}
		ranges++

		q := domain.CodeFromInt(lo).String() + "-" + domain.CodeFromInt(hi).String()
		sections, err := e.client.Query(ctx, term, q)
		if err != nil {
			if IsUnavailable(err) {
				return nil, fmt.Errorf("websoc unreachable while enumerating: %w", err)
			}
			if !errors.Is(err, ErrEmptyPage) {
				failed++
				logger.Warn("websoc: enumeration range failed", "range", q, "error", err)
			}
			continue
		}
		for _, s := range sections {
			seen.Add(s.Code)
		}
	}

	if ranges > 0 && failed == ranges {
		return nil, fmt.Errorf("websoc: all %d enumeration ranges failed", ranges)
	}

	logger.Info("websoc: catalog enumerated", "term", term, "codes", len(seen), "ranges", ranges, "failed", failed)
	return seen.Sorted(), nil
}
