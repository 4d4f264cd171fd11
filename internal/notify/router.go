package notify

import (
	"context"
	"fmt"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// ErrDispatchDisabled is returned by LogSender. It wraps
// domain.ErrNotDelivered so logged messages never prune a subscription.
var ErrDispatchDisabled = fmt.Errorf("dispatch disabled: %w", domain.ErrNotDelivered)

// Sender delivers a message to one address on a single channel.
type Sender interface {
	Send(ctx context.Context, address string, msg domain.Message) error
}

// Router delivers messages through the sender registered for the
// recipient's channel.
type Router struct {
	senders map[domain.Channel]Sender
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{senders: make(map[domain.Channel]Sender)}
}

// Register installs s for channel ch.
func (r *Router) Register(ch domain.Channel, s Sender) *Router {
	r.senders[ch] = s
	return r
}

// Channels returns the channels with a registered sender.
func (r *Router) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

// Send delivers msg to recipient.
func (r *Router) Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error {
	s, ok := r.senders[recipient.Channel]
	if !ok {
		return fmt.Errorf("%w: no sender for channel %q", domain.ErrNotDelivered, recipient.Channel)
	}
	return s.Send(ctx, recipient.Address, msg)
}

// LogSender only logs messages. It stands in for real delivery in
// development mode and when dispatch is disabled, and always returns
// ErrDispatchDisabled.
type LogSender struct {
	Channel domain.Channel
}

// Send logs msg.
func (l LogSender) Send(_ context.Context, address string, msg domain.Message) error {
	logger.Info("notify: dispatch disabled, message not sent",
		"channel", string(l.Channel), "recipient", address, "subject", msg.Subject, "body", msg.Body)
	return ErrDispatchDisabled
}
