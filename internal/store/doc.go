// Package store persists the append-only quote series.
//
// Two implementations share one interface: Postgres for production and
// Memory for tests and single-binary preview runs. Appends are atomic
// single-statement inserts; a duplicate (product, observed_at) is an
// idempotent no-op, not an error. Quotes are never updated or deleted.
//
// Cross-product appends never block each other. Same-product ordering is
// the caller's job; the update orchestrator holds a per-product lock
// spanning append and alert evaluation.
package store
