package source

import (
	"context"
	"errors"
	"time"

	"github.com/pricetrack/pricetrack/internal/model"
)

var (
	flipkartPriceSelectors = []string{
		"div._30jeq3._16Jk6d",
		"div._1vC4OE._3qQ9m1",
		"div._30jeq3",
	}
	// The sold-out banner is the only availability marker the site renders.
	flipkartAvailabilitySelectors = []string{
		"div._16FRp0",
	}
	flipkartTitleSelectors = []string{
		"span.B_NuCI",
		"h1._9E25nV",
	}
)

// FlipkartAdapter extracts listing data from flipkart product pages.
type FlipkartAdapter struct {
	client *Client
}

// NewFlipkartAdapter creates an adapter over the shared fetch client.
func NewFlipkartAdapter(client *Client) *FlipkartAdapter {
	return &FlipkartAdapter{client: client}
}

// Site returns the source-site identifier.
func (f *FlipkartAdapter) Site() string { return SiteFlipkart }

// Fetch retrieves the listing page and extracts raw price, availability,
// and title text.
func (f *FlipkartAdapter) Fetch(ctx context.Context, p model.Product) (*RawQuote, error) {
	doc, elapsed, err := f.client.FetchDocument(ctx, SiteFlipkart, p.URL)
	if err != nil {
		return nil, err
	}

	priceText := firstText(doc, flipkartPriceSelectors)
	if priceText == "" {
		return nil, &FetchError{
			Kind: KindSiteStructureChanged,
			Site: SiteFlipkart,
			URL:  p.URL,
			Err:  errors.New("no price selector matched"),
		}
	}

	// No banner with a price present means the listing is purchasable.
	availabilityText := firstText(doc, flipkartAvailabilitySelectors)
	if availabilityText == "" {
		availabilityText = "in stock"
	}

	return &RawQuote{
		PriceText:        priceText,
		AvailabilityText: availabilityText,
		Title:            firstText(doc, flipkartTitleSelectors),
		FetchedAt:        time.Now().UTC(),
		ResponseTime:     elapsed,
		Source:           SiteFlipkart,
	}, nil
}
