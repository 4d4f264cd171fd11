package watch

import "github.com/ignite/seatwatch/internal/domain"

// Reconcile cross-references observed statuses with subscriptions and
// returns one batch per dispatchable status that matched anything. Batches
// follow domain.DispatchOrder and entries are sorted by code. Neither input
// is modified.
func Reconcile(statuses domain.StatusBucket, subs map[domain.Code]domain.Subscription) []domain.DispatchBatch {
	var batches []domain.DispatchBatch
	for _, status := range domain.DispatchOrder {
		codes, ok := statuses[status]
		if !ok || len(codes) == 0 {
			continue
		}

		var entries []domain.DispatchEntry
		for _, code := range codes.Sorted() {
			sub, ok := subs[code]
			if !ok {
				continue
			}
			recipients := liveRecipients(sub.Recipients)
			if len(recipients) == 0 {
				continue
			}
			entries = append(entries, domain.DispatchEntry{
				Code:       code,
				Title:      sub.Title,
				Recipients: recipients,
			})
		}
		if len(entries) > 0 {
			batches = append(batches, domain.DispatchBatch{Status: status, Entries: entries})
		}
	}
	return batches
}

func liveRecipients(rs []domain.Recipient) []domain.Recipient {
	out := make([]domain.Recipient, 0, len(rs))
	for _, r := range rs {
		if r.Address == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
