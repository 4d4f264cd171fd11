package domain

import "strings"

// Status is a section availability state reported by the catalog feed.
// Only labels listed here are recognized; anything else parses to
// StatusUnknown and is ignored by the reconciler.
type Status string

const (
	StatusOpen       Status = "open"
	StatusWaitlisted Status = "waitl"
	StatusFull       Status = "full"
	StatusNewOnly    Status = "newonly"
	StatusCancelled  Status = "cancelled"
	StatusUnknown    Status = ""
)

// DispatchOrder lists the statuses that trigger notifications, in the order
// batches are produced.
var DispatchOrder = []Status{StatusOpen, StatusWaitlisted}

// ParseStatus maps a raw feed label (any case, surrounding space allowed) to
// a Status.
func ParseStatus(label string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(label))) {
	case StatusOpen:
		return StatusOpen
	case StatusWaitlisted:
		return StatusWaitlisted
	case StatusFull:
		return StatusFull
	case StatusNewOnly:
		return StatusNewOnly
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// Dispatchable reports whether subscribers are notified of this status.
// Cancellation is recognized but not dispatched.
func (s Status) Dispatchable() bool {
	return s == StatusOpen || s == StatusWaitlisted
}

// StatusBucket maps each observed status to the codes seen with it in one
// cycle. It is rebuilt every cycle.
type StatusBucket map[Status]CodeSet

// Add records that code was observed with status.
func (b StatusBucket) Add(status Status, code Code) {
	set, ok := b[status]
	if !ok {
		set = make(CodeSet)
		b[status] = set
	}
	set.Add(code)
}

// Merge folds other into b.
func (b StatusBucket) Merge(other StatusBucket) {
	for status, codes := range other {
		for c := range codes {
			b.Add(status, c)
		}
	}
}

// Len returns the number of (status, code) observations.
func (b StatusBucket) Len() int {
	n := 0
	for _, codes := range b {
		n += len(codes)
	}
	return n
}
