// Package database provides connection pool management for PostgreSQL.
//
// One database holds everything: products and alert rules (catalog data,
// owned by the surrounding application) plus the append-only quote series.
package database
