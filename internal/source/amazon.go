package source

import (
	"context"
	"errors"
	"time"

	"github.com/pricetrack/pricetrack/internal/model"
)

// Selector lists tried in order; first non-empty hit wins. The site ships
// several page layouts at once, so every known variant stays listed.
var (
	amazonPriceSelectors = []string{
		"span.a-price-whole",
		"span.a-offscreen",
		"span.a-price span.a-offscreen",
		"span#priceblock_ourprice",
		"span#priceblock_dealprice",
	}
	amazonAvailabilitySelectors = []string{
		"div#availability span",
		"div#availability",
	}
	amazonTitleSelectors = []string{
		"span#productTitle",
	}
)

// AmazonAdapter extracts listing data from amazon product pages.
type AmazonAdapter struct {
	client *Client
}

// NewAmazonAdapter creates an adapter over the shared fetch client.
func NewAmazonAdapter(client *Client) *AmazonAdapter {
	return &AmazonAdapter{client: client}
}

// Site returns the source-site identifier.
func (a *AmazonAdapter) Site() string { return SiteAmazon }

// Fetch retrieves the listing page and extracts raw price, availability,
// and title text.
func (a *AmazonAdapter) Fetch(ctx context.Context, p model.Product) (*RawQuote, error) {
	doc, elapsed, err := a.client.FetchDocument(ctx, SiteAmazon, p.URL)
	if err != nil {
		return nil, err
	}

	priceText := firstText(doc, amazonPriceSelectors)
	if priceText == "" {
		return nil, &FetchError{
			Kind: KindSiteStructureChanged,
			Site: SiteAmazon,
			URL:  p.URL,
			Err:  errors.New("no price selector matched"),
		}
	}

	return &RawQuote{
		PriceText:        priceText,
		AvailabilityText: firstText(doc, amazonAvailabilitySelectors),
		Title:            firstText(doc, amazonTitleSelectors),
		FetchedAt:        time.Now().UTC(),
		ResponseTime:     elapsed,
		Source:           SiteAmazon,
	}, nil
}
