// Package domain defines the core types for the section watcher.
//
// Types in this package are value objects shared by the catalog chunker,
// the status fetcher, the reconciler and the dispatch coordinator. They carry
// no I/O and no collaborator handles.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
