// Package model defines shared domain types used across the price tracker.
//
// Conventions:
//   - Prices: decimal.Decimal in the product's currency (never floats)
//   - Timestamps: time.Time in UTC
//   - IDs: uuid.UUID for products, int64 for alert rules
//
// Catalog rows (Product, AlertRule) are owned by the surrounding
// application. The engine reads them and writes back only
// Product.LastUpdate and AlertRule.LastFiredAt.
package model
