package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pricetrack/pricetrack/internal/model"
)

func testClient() *Client {
	return NewClient(WithDelay(0, 1))
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestAmazonAdapterFetch tests extraction against known amazon page layouts.
func TestAmazonAdapterFetch(t *testing.T) {
	adapter := NewAmazonAdapter(testClient())

	t.Run("current layout", func(t *testing.T) {
		server := serveHTML(t, `<html><body>
			<span id="productTitle"> Test Phone 128GB </span>
			<span class="a-price"><span class="a-offscreen">₹1,29,999.00</span></span>
			<div id="availability"><span> In stock </span></div>
		</body></html>`)

		raw, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteAmazon})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.PriceText != "₹1,29,999.00" {
			t.Errorf("PriceText = %q, want %q", raw.PriceText, "₹1,29,999.00")
		}
		if raw.AvailabilityText != "In stock" {
			t.Errorf("AvailabilityText = %q, want %q", raw.AvailabilityText, "In stock")
		}
		if raw.Title != "Test Phone 128GB" {
			t.Errorf("Title = %q, want %q", raw.Title, "Test Phone 128GB")
		}
		if raw.Source != SiteAmazon {
			t.Errorf("Source = %q, want %q", raw.Source, SiteAmazon)
		}
		if raw.ResponseTime <= 0 {
			t.Errorf("ResponseTime = %v, want > 0", raw.ResponseTime)
		}
		if raw.FetchedAt.IsZero() {
			t.Error("FetchedAt should be set")
		}
	})

	t.Run("legacy price block layout", func(t *testing.T) {
		server := serveHTML(t, `<html><body>
			<span id="priceblock_ourprice">₹12,999</span>
		</body></html>`)

		raw, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteAmazon})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.PriceText != "₹12,999" {
			t.Errorf("PriceText = %q, want %q", raw.PriceText, "₹12,999")
		}
	})

	t.Run("selector order prefers whole price", func(t *testing.T) {
		server := serveHTML(t, `<html><body>
			<span class="a-price-whole">12,999</span>
			<span class="a-offscreen">₹999</span>
		</body></html>`)

		raw, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteAmazon})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.PriceText != "12,999" {
			t.Errorf("PriceText = %q, want %q", raw.PriceText, "12,999")
		}
	})

	t.Run("missing price maps to site structure changed", func(t *testing.T) {
		server := serveHTML(t, `<html><body><p>redesigned page</p></body></html>`)

		_, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteAmazon})
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Kind != KindSiteStructureChanged {
			t.Errorf("Kind = %q, want %q", fe.Kind, KindSiteStructureChanged)
		}
	})

	t.Run("listing gone maps to not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteAmazon})
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Kind != KindNotFound {
			t.Errorf("Kind = %q, want %q", fe.Kind, KindNotFound)
		}
	})
}

// TestFlipkartAdapterFetch tests extraction against known flipkart page layouts.
func TestFlipkartAdapterFetch(t *testing.T) {
	adapter := NewFlipkartAdapter(testClient())

	t.Run("listing with price", func(t *testing.T) {
		server := serveHTML(t, `<html><body>
			<span class="B_NuCI">Test Headphones</span>
			<div class="_30jeq3 _16Jk6d">₹2,499</div>
		</body></html>`)

		raw, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteFlipkart})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.PriceText != "₹2,499" {
			t.Errorf("PriceText = %q, want %q", raw.PriceText, "₹2,499")
		}
		if raw.Title != "Test Headphones" {
			t.Errorf("Title = %q, want %q", raw.Title, "Test Headphones")
		}
		if raw.Source != SiteFlipkart {
			t.Errorf("Source = %q, want %q", raw.Source, SiteFlipkart)
		}
		// No sold-out banner on the page means purchasable.
		if raw.AvailabilityText != "in stock" {
			t.Errorf("AvailabilityText = %q, want %q", raw.AvailabilityText, "in stock")
		}
	})

	t.Run("sold out banner captured as availability", func(t *testing.T) {
		server := serveHTML(t, `<html><body>
			<div class="_30jeq3">₹2,499</div>
			<div class="_16FRp0">Sold Out</div>
		</body></html>`)

		raw, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteFlipkart})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.AvailabilityText != "Sold Out" {
			t.Errorf("AvailabilityText = %q, want %q", raw.AvailabilityText, "Sold Out")
		}
	})

	t.Run("missing price maps to site structure changed", func(t *testing.T) {
		server := serveHTML(t, `<html><body><p>nothing here</p></body></html>`)

		_, err := adapter.Fetch(context.Background(), model.Product{URL: server.URL, Site: SiteFlipkart})
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Kind != KindSiteStructureChanged {
			t.Errorf("Kind = %q, want %q", fe.Kind, KindSiteStructureChanged)
		}
	})
}

// TestRegistry tests adapter resolution.
func TestRegistry(t *testing.T) {
	registry := NewDefaultRegistry(testClient())

	t.Run("known sites resolve", func(t *testing.T) {
		for _, site := range []string{SiteAmazon, SiteFlipkart} {
			a, err := registry.Lookup(site)
			if err != nil {
				t.Fatalf("Lookup(%q) failed: %v", site, err)
			}
			if a.Site() != site {
				t.Errorf("adapter.Site() = %q, want %q", a.Site(), site)
			}
		}
	})

	t.Run("unknown site is an error", func(t *testing.T) {
		_, err := registry.Lookup("ebay")
		if err == nil {
			t.Fatal("expected error for unknown site, got nil")
		}
	})

	t.Run("sites listed", func(t *testing.T) {
		if got := len(registry.Sites()); got != 2 {
			t.Errorf("len(Sites()) = %d, want 2", got)
		}
	})
}

// TestDetectSite tests URL-based site detection.
func TestDetectSite(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.in/dp/B0TEST123", SiteAmazon},
		{"https://www.amazon.com/gp/product/B0TEST123", SiteAmazon},
		{"https://www.flipkart.com/item/p/itmtest", SiteFlipkart},
		{"https://WWW.FLIPKART.COM/item", SiteFlipkart},
		{"https://www.ebay.com/itm/123", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DetectSite(tt.url); got != tt.want {
			t.Errorf("DetectSite(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
