// Package catalog partitions a term's section codes into query-safe ranges
// and selects the ranges that cover the current subscriptions.
//
// Chunking runs once per catalog snapshot. Selection runs every cycle
// against the cached chunks, so one upstream query can resolve every
// subscription that falls inside the same range.
package catalog
