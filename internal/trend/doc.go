// Package trend derives price and demand signals from recent quotes.
//
// The predictor is a deterministic heuristic: least-squares slope over a
// median-filtered window plus a volatility-scaled confidence. Signals are
// recomputed on demand and never persisted; fewer than three quotes is a
// valid Insufficient state, not an error.
package trend
