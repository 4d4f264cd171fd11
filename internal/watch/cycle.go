package watch

import (
	"context"
	"fmt"

	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// Stage names passed to an Instrument.
const (
	StageSubscriptions = "fetch_subscriptions"
	StageSelect        = "select_chunks"
	StageStatuses      = "fetch_statuses"
	StageReconcile     = "reconcile"
	StageDispatch      = "dispatch"
	StagePrune         = "prune"
)

// Instrument wraps one stage of a cycle. Implementations must call fn
// exactly once and return its error.
type Instrument func(ctx context.Context, stage string, fn func() error) error

func passthrough(_ context.Context, _ string, fn func() error) error { return fn() }

// CycleReport summarizes one cycle.
type CycleReport struct {
	Subscriptions  int                    `json:"subscriptions"`
	ChunksSelected int                    `json:"chunks_selected"`
	ChunksTotal    int                    `json:"chunks_total"`
	Uncovered      []domain.Code          `json:"uncovered,omitempty"`
	Observed       int                    `json:"observed"`
	Batches        []domain.DispatchBatch `json:"-"`
	Messages       int                    `json:"messages"`
	Pruned         int                    `json:"pruned"`
	PruneFailures  int                    `json:"prune_failures"`
}

// Engine runs reconciliation cycles over a fixed catalog snapshot.
type Engine struct {
	snapshot    *catalog.Snapshot
	store       SubscriptionStore
	fetcher     *Fetcher
	coordinator *Coordinator
	instrument  Instrument
}

// NewEngine creates an Engine. The snapshot's chunking is reused by every
// cycle.
func NewEngine(snapshot *catalog.Snapshot, store SubscriptionStore, fetcher *Fetcher, coordinator *Coordinator) *Engine {
	return &Engine{
		snapshot:    snapshot,
		store:       store,
		fetcher:     fetcher,
		coordinator: coordinator,
		instrument:  passthrough,
	}
}

// SetInstrument installs fn around every stage. nil restores the default.
func (e *Engine) SetInstrument(fn Instrument) {
	if fn == nil {
		fn = passthrough
	}
	e.instrument = fn
}

// Snapshot returns the catalog snapshot the engine works from.
func (e *Engine) Snapshot() *catalog.Snapshot { return e.snapshot }

// RunCycle performs one reconciliation pass. A store read failure or feed
// outage aborts the cycle before anything is sent. ErrNoSubscriptions is
// returned when nobody is subscribed.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ChunksTotal: len(e.snapshot.Chunks)}

	var subs map[domain.Code]domain.Subscription
	err := e.instrument(ctx, StageSubscriptions, func() error {
		var err error
		subs, err = e.store.FetchActive(ctx)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("fetching subscriptions: %w", err)
	}
	report.Subscriptions = len(subs)
	if len(subs) == 0 {
		return report, ErrNoSubscriptions
	}

	var chunks []catalog.Chunk
	_ = e.instrument(ctx, StageSelect, func() error {
		codes := domain.CodesOf(subs)
		chunks = catalog.Select(e.snapshot.Chunks, codes)
		report.Uncovered = catalog.Uncovered(e.snapshot.Chunks, codes)
		return nil
	})
	report.ChunksSelected = len(chunks)
	if len(report.Uncovered) > 0 {
		logger.Warn("watch: subscribed codes outside the catalog snapshot",
			"term", e.snapshot.Term, "count", len(report.Uncovered))
	}
	if len(chunks) == 0 {
		return report, nil
	}

	var statuses domain.StatusBucket
	err = e.instrument(ctx, StageStatuses, func() error {
		var err error
		statuses, err = e.fetcher.FetchStatuses(ctx, chunks)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("fetching statuses: %w", err)
	}
	report.Observed = statuses.Len()

	_ = e.instrument(ctx, StageReconcile, func() error {
		report.Batches = Reconcile(statuses, subs)
		return nil
	})
	for _, b := range report.Batches {
		report.Messages += b.RecipientCount()
	}
	if len(report.Batches) == 0 {
		return report, nil
	}

	var prunes []domain.PruneRequest
	_ = e.instrument(ctx, StageDispatch, func() error {
		prunes = e.coordinator.Dispatch(ctx, report.Batches)
		return nil
	})

	_ = e.instrument(ctx, StagePrune, func() error {
		e.applyPrunes(ctx, prunes, report)
		return nil
	})
	return report, nil
}

// applyPrunes runs even when ctx is cancelled so that delivered recipients
// are not notified twice.
func (e *Engine) applyPrunes(ctx context.Context, prunes []domain.PruneRequest, report *CycleReport) {
	pctx := context.WithoutCancel(ctx)
	for _, p := range prunes {
		if err := e.store.Prune(pctx, p.Code, p.Recipients); err != nil {
			report.PruneFailures++
			logger.Error("watch: prune failed",
				"code", p.Code.String(), "recipients", len(p.Recipients), "error", err)
			continue
		}
		report.Pruned += len(p.Recipients)
	}
}
