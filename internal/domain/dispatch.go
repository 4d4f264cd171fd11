package domain

import "errors"

// ErrNotDelivered marks a send that completed without reaching the
// recipient. The recipient must stay subscribed.
var ErrNotDelivered = errors.New("message not delivered")

// DispatchEntry is one section ready to be announced.
type DispatchEntry struct {
	Code       Code        `json:"code"`
	Title      string      `json:"title"`
	Recipients []Recipient `json:"recipients"`
}

// DispatchBatch groups the entries for one status within a cycle.
type DispatchBatch struct {
	Status  Status          `json:"status"`
	Entries []DispatchEntry `json:"entries"`
}

// RecipientCount returns the number of messages the batch will produce.
func (b DispatchBatch) RecipientCount() int {
	n := 0
	for _, e := range b.Entries {
		n += len(e.Recipients)
	}
	return n
}

// PruneRequest lists recipients that were notified for a code and must be
// removed from its subscription.
type PruneRequest struct {
	Code       Code        `json:"code"`
	Recipients []Recipient `json:"recipients"`
}

// Message is the rendered content sent to one recipient. SMS uses Body
// only; email uses both fields.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
