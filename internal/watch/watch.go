// Package watch runs the reconciliation cycle: select the catalog chunks
// covering the current subscriptions, fetch their statuses, reconcile them
// against subscribers, dispatch notifications and prune delivered recipients.
package watch

import (
	"context"
	"errors"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/websoc"
)

var (
	// ErrFeedUnavailable aborts a cycle when the catalog feed cannot be
	// reached at all.
	ErrFeedUnavailable = errors.New("watch: catalog feed unavailable")

	// ErrNoSubscriptions is returned by RunCycle when there is nothing to
	// watch. Callers treat it as an idle cycle rather than a failure.
	ErrNoSubscriptions = errors.New("watch: no active subscriptions")
)

// Feed queries section statuses for a course-code expression
// ("first-last" or a comma list).
type Feed interface {
	Query(ctx context.Context, term, courseCodes string) ([]websoc.Section, error)
}

// SubscriptionStore reads active subscriptions and removes notified
// recipients.
type SubscriptionStore interface {
	// FetchActive returns only subscriptions with at least one recipient.
	FetchActive(ctx context.Context) (map[domain.Code]domain.Subscription, error)
	// Prune removes recipients from code's subscription. Removing an absent
	// recipient is not an error.
	Prune(ctx context.Context, code domain.Code, recipients []domain.Recipient) error
}

// Notifier delivers one message to one recipient.
type Notifier interface {
	Send(ctx context.Context, recipient domain.Recipient, msg domain.Message) error
}

// Composer renders the message for a recipient of a dispatch entry.
type Composer interface {
	Compose(ctx context.Context, status domain.Status, entry domain.DispatchEntry, r domain.Recipient) (domain.Message, error)
}
