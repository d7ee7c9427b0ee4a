package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricetrack/pricetrack/internal/model"
)

// Site identifiers for the closed adapter set.
const (
	SiteAmazon   = "amazon"
	SiteFlipkart = "flipkart"
)

// RawQuote is the unparsed result of one successful fetch.
type RawQuote struct {
	PriceText        string        // Price text as found on the page
	AvailabilityText string        // Availability wording, may be empty
	Title            string        // Listing title, may be empty
	FetchedAt        time.Time     // Fetch completion time (UTC)
	ResponseTime     time.Duration // HTTP round-trip wall time
	Source           string        // Adapter that produced it
}

// Adapter fetches the raw listing state for one product from its site.
type Adapter interface {
	// Site returns the source-site identifier this adapter serves.
	Site() string

	// Fetch retrieves the product's listing page and extracts the raw
	// price and availability text. Errors are *FetchError; Fetch never
	// retries internally.
	Fetch(ctx context.Context, p model.Product) (*RawQuote, error)
}

// Registry resolves a source-site identifier to its adapter.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Site()] = a
	}
	return r
}

// NewDefaultRegistry wires the closed adapter set over one shared client.
func NewDefaultRegistry(client *Client) *Registry {
	return NewRegistry(NewAmazonAdapter(client), NewFlipkartAdapter(client))
}

// Lookup returns the adapter for site. An unknown site is a configuration
// error surfaced before any fetch happens.
func (r *Registry) Lookup(site string) (Adapter, error) {
	a, ok := r.adapters[site]
	if !ok {
		return nil, fmt.Errorf("no adapter for site %q", site)
	}
	return a, nil
}

// Sites lists the registered site identifiers.
func (r *Registry) Sites() []string {
	sites := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		sites = append(sites, s)
	}
	return sites
}

// DetectSite guesses the site identifier from a listing URL. Returns ""
// when the URL matches no supported site.
func DetectSite(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "amazon."):
		return SiteAmazon
	case strings.Contains(lower, "flipkart."):
		return SiteFlipkart
	default:
		return ""
	}
}

// firstText returns the trimmed text of the first selector that matches a
// node with non-empty text. Selectors are tried in order.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if txt := strings.TrimSpace(doc.Find(sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}
