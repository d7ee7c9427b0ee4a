// Package normalize turns raw scraped listing text into canonical quotes.
//
// Price text arrives in whatever shape the site renders: currency symbols,
// Indian digit grouping (1,29,999.00), decimal-comma forms (1.299,00), and
// price ranges. Normalization is pure string work; it never touches the
// network or the store.
package normalize
