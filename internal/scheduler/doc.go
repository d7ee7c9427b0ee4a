// Package scheduler runs the update task on a cron spec. Overlapping
// ticks are skipped rather than queued: a tick that lands while the
// previous run is still in flight is dropped.
package scheduler
