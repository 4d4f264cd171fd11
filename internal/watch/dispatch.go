package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// SendObserver is notified after every delivery attempt.
type SendObserver func(status domain.Status, r domain.Recipient, err error, elapsed time.Duration)

// Coordinator fans out one send per recipient and reports which recipients
// can be pruned.
type Coordinator struct {
	composer      Composer
	notifier      Notifier
	sendTimeout   time.Duration
	maxConcurrent int
	channels      map[domain.Channel]bool
	observer      SendObserver
}

// CoordinatorConfig holds dispatch limits.
type CoordinatorConfig struct {
	SendTimeout   time.Duration // per-message deadline, 0 for none
	MaxConcurrent int           // in-flight sends, 0 for unbounded
	// Channels limits delivery to recipients on these channels. Recipients
	// on other channels are skipped and stay subscribed. Empty means all.
	Channels []domain.Channel
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(composer Composer, notifier Notifier, cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		composer:      composer,
		notifier:      notifier,
		sendTimeout:   cfg.SendTimeout,
		maxConcurrent: cfg.MaxConcurrent,
	}
	if len(cfg.Channels) > 0 {
		c.channels = make(map[domain.Channel]bool, len(cfg.Channels))
		for _, ch := range cfg.Channels {
			c.channels[ch] = true
		}
	}
	return c
}

// SetObserver installs obs. It must be called before Dispatch.
func (c *Coordinator) SetObserver(obs SendObserver) { c.observer = obs }

type delivery struct {
	status    domain.Status
	entry     *domain.DispatchEntry
	recipient domain.Recipient
	delivered bool
}

// Dispatch sends every message in batches concurrently and waits for all of
// them. The returned requests list, per code, the recipients whose send
// returned no error. Failed, skipped and cancelled sends are never pruned.
func (c *Coordinator) Dispatch(ctx context.Context, batches []domain.DispatchBatch) []domain.PruneRequest {
	var deliveries []*delivery
	skipped := make(map[domain.Channel]int)
	for bi := range batches {
		b := &batches[bi]
		for ei := range b.Entries {
			e := &b.Entries[ei]
			for _, r := range e.Recipients {
				if c.channels != nil && !c.channels[r.Channel] {
					skipped[r.Channel]++
					continue
				}
				deliveries = append(deliveries, &delivery{status: b.Status, entry: e, recipient: r})
			}
		}
	}
	for ch, n := range skipped {
		logger.Info("watch: skipping recipients on disabled channel", "channel", string(ch), "recipients", n)
	}
	if len(deliveries) == 0 {
		return nil
	}

	var sem chan struct{}
	if c.maxConcurrent > 0 {
		sem = make(chan struct{}, c.maxConcurrent)
	}

	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		go func(d *delivery) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
			}
			d.delivered = c.deliver(ctx, d) == nil
		}(d)
	}
	wg.Wait()

	return prunesFor(deliveries)
}

func (c *Coordinator) deliver(ctx context.Context, d *delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := c.send(ctx, d)
	if c.observer != nil {
		c.observer(d.status, d.recipient, err, time.Since(start))
	}
	if errors.Is(err, domain.ErrNotDelivered) {
		logger.Info("watch: message not delivered, recipient stays subscribed",
			"status", string(d.status), "code", d.entry.Code.String(),
			"recipient", d.recipient.String(), "reason", err)
		return err
	}
	if err != nil {
		logger.Warn("watch: send failed, recipient stays subscribed",
			"status", string(d.status), "code", d.entry.Code.String(),
			"recipient", d.recipient.String(), "error", err)
		return err
	}
	logger.Info("watch: notified",
		"status", string(d.status), "code", d.entry.Code.String(), "recipient", d.recipient.String())
	return nil
}

func (c *Coordinator) send(ctx context.Context, d *delivery) error {
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	msg, err := c.composer.Compose(ctx, d.status, *d.entry, d.recipient)
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}
	return c.notifier.Send(ctx, d.recipient, msg)
}

// prunesFor groups delivered recipients by code, keeping first-seen order.
func prunesFor(deliveries []*delivery) []domain.PruneRequest {
	var out []domain.PruneRequest
	index := make(map[domain.Code]int)
	for _, d := range deliveries {
		if !d.delivered {
			continue
		}
		code := d.entry.Code
		i, ok := index[code]
		if !ok {
			i = len(out)
			index[code] = i
			out = append(out, domain.PruneRequest{Code: code})
		}
		out[i].Recipients = append(out[i].Recipients, d.recipient)
	}
	return out
}
