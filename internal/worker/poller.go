// Package worker runs the watch engine on a schedule.
package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/metrics"
	"github.com/ignite/seatwatch/internal/pkg/distlock"
	"github.com/ignite/seatwatch/internal/pkg/logger"
	"github.com/ignite/seatwatch/internal/watch"
)

type cycleIDKey struct{}

// CycleID returns the correlation id of the cycle running under ctx.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleIDKey{}).(string)
	return id
}

// CycleSummary describes the most recent cycle.
type CycleSummary struct {
	ID         string             `json:"id"`
	Outcome    string             `json:"outcome"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   string             `json:"duration"`
	Error      string             `json:"error,omitempty"`
	Report     *watch.CycleReport `json:"report,omitempty"`
	NextWakeUp time.Time          `json:"next_wake_up"`
}

// Poller runs watch cycles one after another until stopped.
type Poller struct {
	engine       *watch.Engine
	lock         distlock.DistLock
	metrics      *metrics.Collector
	schedule     Schedule
	cycleTimeout time.Duration
	rng          *rand.Rand

	// Stats
	totalCycles   int64
	idleCycles    int64
	failedCycles  int64
	skippedCycles int64
	totalMessages int64
	totalPruned   int64
	lastCycle     atomic.Pointer[CycleSummary]
	lastSuccess   atomic.Int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// PollerConfig holds the poller's collaborators and limits.
type PollerConfig struct {
	Schedule     Schedule
	CycleTimeout time.Duration     // upper bound on one cycle, 0 for none
	Lock         distlock.DistLock // defaults to a process-local lock
	Metrics      *metrics.Collector
	Rand         *rand.Rand // jitter source, nil for the global source
}

// NewPoller creates a poller for engine and wraps every cycle stage with
// logging and metrics.
func NewPoller(engine *watch.Engine, cfg PollerConfig) *Poller {
	if cfg.Schedule.Interval <= 0 {
		cfg.Schedule.Interval = time.Minute
	}
	if cfg.Schedule.IdleBackoff <= 0 {
		cfg.Schedule.IdleBackoff = cfg.Schedule.Interval
	}
	if cfg.Schedule.ErrorBackoff <= 0 {
		cfg.Schedule.ErrorBackoff = cfg.Schedule.Interval
	}
	if cfg.Lock == nil {
		cfg.Lock = &distlock.LocalLock{}
	}

	p := &Poller{
		engine:       engine,
		lock:         cfg.Lock,
		metrics:      cfg.Metrics,
		schedule:     cfg.Schedule,
		cycleTimeout: cfg.CycleTimeout,
		rng:          cfg.Rand,
	}
	engine.SetInstrument(p.instrument)
	return p
}

// Start begins the polling goroutine.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	snap := p.engine.Snapshot()
	logger.Info("poller: starting",
		"term", snap.Term, "catalog_codes", len(snap.Codes), "chunks", len(snap.Chunks),
		"interval", p.schedule.Interval.String(), "jitter", p.schedule.Jitter.String())

	p.wg.Add(1)
	go p.pollLoop()
}

// Stop cancels the running cycle and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	logger.Info("poller: stopping")
	p.wg.Wait()

	stats := p.Stats()
	logger.Info("poller: stopped",
		"cycles", stats["total_cycles"], "failed", stats["failed_cycles"],
		"messages", stats["total_messages"], "pruned", stats["total_pruned"])
}

// IsRunning reports whether the loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Stats returns cumulative counters.
func (p *Poller) Stats() map[string]int64 {
	return map[string]int64{
		"total_cycles":   atomic.LoadInt64(&p.totalCycles),
		"idle_cycles":    atomic.LoadInt64(&p.idleCycles),
		"failed_cycles":  atomic.LoadInt64(&p.failedCycles),
		"skipped_cycles": atomic.LoadInt64(&p.skippedCycles),
		"total_messages": atomic.LoadInt64(&p.totalMessages),
		"total_pruned":   atomic.LoadInt64(&p.totalPruned),
	}
}

// LastCycle returns the most recent cycle summary, or nil before the first
// cycle completes.
func (p *Poller) LastCycle() *CycleSummary { return p.lastCycle.Load() }

// LastSuccess returns when a cycle last finished without error.
func (p *Poller) LastSuccess() time.Time {
	n := p.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Interval returns the base delay between cycles.
func (p *Poller) Interval() time.Duration { return p.schedule.Interval }

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	for {
		summary := p.RunOnce(p.ctx)
		if p.ctx.Err() != nil {
			return
		}

		delay := p.schedule.Next(summary.Outcome, p.rng)
		next := *summary
		next.NextWakeUp = time.Now().Add(delay)
		p.lastCycle.Store(&next)
		logger.Debug("poller: sleeping", "cycle_id", summary.ID, "outcome", summary.Outcome, "delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce runs a single cycle under the distributed lock and records its
// outcome.
func (p *Poller) RunOnce(ctx context.Context) *CycleSummary {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, cycleIDKey{}, id)
	if p.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cycleTimeout)
		defer cancel()
	}

	start := time.Now()
	summary := &CycleSummary{ID: id, StartedAt: start}

	var report *watch.CycleReport
	ran, err := distlock.WithLock(ctx, p.lock, func(ctx context.Context) error {
		var err error
		report, err = p.engine.RunCycle(ctx)
		return err
	})
	elapsed := time.Since(start)

	summary.Report = report
	summary.Duration = elapsed.String()
	summary.Outcome = classify(ran, err)
	if err != nil && summary.Outcome != metrics.CycleIdle {
		summary.Error = err.Error()
	}
	p.record(summary, report, elapsed)

	log := logger.With("cycle_id", id, "outcome", summary.Outcome, "duration", summary.Duration)
	switch summary.Outcome {
	case metrics.CycleOK:
		log.Info("poller: cycle complete",
			"subscriptions", report.Subscriptions, "chunks", report.ChunksSelected,
			"messages", report.Messages, "pruned", report.Pruned)
	case metrics.CycleIdle:
		log.Info("poller: no active subscriptions")
	case metrics.CycleSkipped:
		log.Info("poller: another watcher holds the cycle lock")
	default:
		log.Error("poller: cycle failed", "error", err)
	}
	return summary
}

func classify(ran bool, err error) string {
	switch {
	case errors.Is(err, watch.ErrNoSubscriptions):
		return metrics.CycleIdle
	case errors.Is(err, watch.ErrFeedUnavailable):
		return metrics.CycleOutage
	case err != nil:
		return metrics.CycleError
	case !ran:
		return metrics.CycleSkipped
	default:
		return metrics.CycleOK
	}
}

func (p *Poller) record(summary *CycleSummary, report *watch.CycleReport, elapsed time.Duration) {
	atomic.AddInt64(&p.totalCycles, 1)
	switch summary.Outcome {
	case metrics.CycleIdle:
		atomic.AddInt64(&p.idleCycles, 1)
	case metrics.CycleSkipped:
		atomic.AddInt64(&p.skippedCycles, 1)
	case metrics.CycleError, metrics.CycleOutage:
		atomic.AddInt64(&p.failedCycles, 1)
	}
	if summary.Outcome == metrics.CycleOK || summary.Outcome == metrics.CycleIdle {
		p.lastSuccess.Store(time.Now().UnixNano())
	}
	if report != nil {
		atomic.AddInt64(&p.totalMessages, int64(report.Messages))
		atomic.AddInt64(&p.totalPruned, int64(report.Pruned))
	}
	p.lastCycle.Store(summary)

	if p.metrics == nil {
		return
	}
	p.metrics.ObserveCycle(summary.Outcome, elapsed)
	if report != nil {
		p.metrics.SetCycleShape(report.Subscriptions, report.ChunksSelected)
		p.metrics.ObservePrunes(report.Pruned, report.PruneFailures)
	}
}

// instrument times and logs each engine stage.
func (p *Poller) instrument(ctx context.Context, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveStage(stage, elapsed)
	}
	if err != nil && !errors.Is(err, watch.ErrNoSubscriptions) {
		logger.Warn("poller: stage failed",
			"cycle_id", CycleID(ctx), "stage", stage, "duration", elapsed.String(), "error", err)
		return err
	}
	logger.Debug("poller: stage done", "cycle_id", CycleID(ctx), "stage", stage, "duration", elapsed.String())
	return err
}

// Snapshot returns the catalog snapshot being watched.
func (p *Poller) Snapshot() *catalog.Snapshot { return p.engine.Snapshot() }
