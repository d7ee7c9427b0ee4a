// Package catalog is the engine's view of the product and alert rule
// tables owned by the surrounding application.
//
// The engine reads products and rules and writes back exactly two
// columns: products.last_update after a successful update, and
// alert_rules.last_fired_at through an atomic claim. Everything else
// (creating products, editing rules, deactivation) happens outside.
package catalog
