// Package httpapi exposes the read-only product surface over gin: catalog
// listings, price history pages, derived trend signals and a health probe.
// Nothing here mutates state; updates belong to the updater engine.
package httpapi
