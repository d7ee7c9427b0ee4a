// Package updater orchestrates product update runs: fetch, normalize,
// persist, predict, evaluate, one failure-isolated unit per product.
//
// Units run on a semaphore-bounded pool. A per-product lock keeps the
// append, prediction and alert evaluation of one product serialized while
// different products proceed in parallel. Unit errors become failed
// outcomes; only store-wide unavailability aborts the run.
package updater
