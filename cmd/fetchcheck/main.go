// Command fetchcheck runs one product URL through its site adapter and
// prints the raw and normalized result. Run it when a site changes its
// markup and the selectors need checking.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/normalize"
	"github.com/pricetrack/pricetrack/internal/source"
)

func main() {
	site := flag.String("site", "", "source site (amazon, flipkart); detected from the URL when empty")
	currency := flag.String("currency", "INR", "expected currency code")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <product-url>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	rawURL := flag.Arg(0)

	siteID := *site
	if siteID == "" {
		siteID = source.DetectSite(rawURL)
		if siteID == "" {
			log.Fatalf("cannot detect site from %q, pass --site", rawURL)
		}
	}

	// Single fetch, so no politeness delay between requests.
	client := source.NewClient(source.WithTimeout(*timeout))
	adapter, err := source.NewDefaultRegistry(client).Lookup(siteID)
	if err != nil {
		log.Fatalf("lookup adapter: %v", err)
	}

	product := model.Product{
		ID:       uuid.New(),
		Name:     "fetch check",
		URL:      rawURL,
		Site:     siteID,
		Currency: *currency,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+10*time.Second)
	defer cancel()

	fmt.Printf("=== Fetching %s (%s) ===\n", rawURL, siteID)
	raw, err := adapter.Fetch(ctx, product)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
	fmt.Printf("Title: %s\n", raw.Title)
	fmt.Printf("Price text: %q\n", raw.PriceText)
	fmt.Printf("Availability text: %q\n", raw.AvailabilityText)
	fmt.Printf("Response time: %s\n", raw.ResponseTime)

	fmt.Println("\n=== Normalized Quote ===")
	quote, err := normalize.Quote(raw, product)
	if err != nil {
		log.Fatalf("normalize failed: %v", err)
	}
	fmt.Printf("Price: %s %s\n", quote.Price, quote.Currency)
	fmt.Printf("Availability: %s\n", quote.Availability)
	fmt.Printf("Observed at: %s\n", quote.ObservedAt.Format(time.RFC3339))

	fmt.Println("\n=== Fetch check passed ===")
}
