// Package alert evaluates catalog rules against fresh quotes and trend
// signals. Evaluation never returns an error: a rule that does not fire is
// a normal result, and a failed cool-down claim suppresses the firing
// rather than surfacing to the caller. Delivery is out of scope; fired
// events cross the Dispatcher boundary and stop there.
package alert
