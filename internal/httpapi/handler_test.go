package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricetrack/pricetrack/internal/catalog"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/store"
	"github.com/pricetrack/pricetrack/internal/trend"
)

func newTestHandler() (*Handler, *catalog.Memory, *store.Memory) {
	gin.SetMode(gin.TestMode)
	cat := catalog.NewMemory()
	st := store.NewMemory()
	return NewHandler(cat, st, trend.NewHeuristic(7), nil), cat, st
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func seedProduct(cat *catalog.Memory, name string) model.Product {
	p := model.Product{
		ID:        uuid.New(),
		Name:      name,
		URL:       "https://www.amazon.in/dp/" + name,
		Site:      "amazon",
		Currency:  "INR",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	cat.PutProduct(p)
	return p
}

func seedQuotes(t *testing.T, st *store.Memory, productID uuid.UUID, base time.Time, prices ...string) {
	t.Helper()
	for i, price := range prices {
		q := model.Quote{
			ProductID:    productID,
			ObservedAt:   base.Add(time.Duration(i) * time.Hour),
			Price:        decimal.RequireFromString(price),
			Currency:     "INR",
			Availability: model.AvailabilityInStock,
			Source:       "amazon",
		}
		if _, err := st.Append(context.Background(), q); err != nil {
			t.Fatalf("seed Append() error = %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler()
	w := doGet(t, h.Router(), "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeJSON(t, w, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version == "" {
		t.Error("version missing from health response")
	}
}

func TestListProducts(t *testing.T) {
	h, cat, st := newTestHandler()
	quoted := seedProduct(cat, "quoted")
	bare := seedProduct(cat, "bare")
	seedQuotes(t, st, quoted.ID, time.Now().UTC().Add(-time.Hour), "1299")

	w := doGet(t, h.Router(), "/api/products")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		LatestPrice string `json:"latest_price"`
	}
	decodeJSON(t, w, &resp)
	if len(resp) != 2 {
		t.Fatalf("products = %d, want 2", len(resp))
	}

	byID := map[string]string{}
	for _, p := range resp {
		byID[p.ID] = p.LatestPrice
	}
	if got := byID[quoted.ID.String()]; got != "1299" {
		t.Errorf("latest_price = %q, want 1299", got)
	}
	if got := byID[bare.ID.String()]; got != "" {
		t.Errorf("bare product latest_price = %q, want empty", got)
	}
}

func TestGetProduct(t *testing.T) {
	h, cat, st := newTestHandler()
	product := seedProduct(cat, "detail")
	base := time.Now().UTC().Add(-48 * time.Hour)
	seedQuotes(t, st, product.ID, base, "100", "95", "90")

	router := h.Router()

	t.Run("found", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+product.ID.String())
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}

		var resp struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Latest *struct {
				Price string `json:"price"`
			} `json:"latest"`
			PriceChangePercent *float64 `json:"price_change_percent"`
		}
		decodeJSON(t, w, &resp)
		if resp.ID != product.ID.String() || resp.Name != "detail" {
			t.Errorf("identity = %s %q", resp.ID, resp.Name)
		}
		if resp.Latest == nil || resp.Latest.Price != "90" {
			t.Errorf("latest = %+v, want price 90", resp.Latest)
		}
		if resp.PriceChangePercent == nil || *resp.PriceChangePercent != -10 {
			t.Errorf("price_change_percent = %v, want -10", resp.PriceChangePercent)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+uuid.NewString())
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		w := doGet(t, router, "/api/products/not-a-uuid")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestGetHistory(t *testing.T) {
	h, cat, st := newTestHandler()
	product := seedProduct(cat, "paged")
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedQuotes(t, st, product.ID, base, "100", "99", "98", "97", "96", "95", "94")

	router := h.Router()

	t.Run("first page and cursor walk", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+product.ID.String()+"/history?limit=3")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}

		var page struct {
			Quotes []struct {
				ObservedAt time.Time `json:"observed_at"`
				Price      string    `json:"price"`
			} `json:"quotes"`
			NextAfter *time.Time `json:"next_after"`
		}
		decodeJSON(t, w, &page)
		if len(page.Quotes) != 3 {
			t.Fatalf("page size = %d, want 3", len(page.Quotes))
		}
		if page.Quotes[0].Price != "100" || page.Quotes[2].Price != "98" {
			t.Errorf("page = %v, want ascending from 100", page.Quotes)
		}
		if page.NextAfter == nil || !page.NextAfter.Equal(base.Add(2*time.Hour)) {
			t.Fatalf("next_after = %v, want %v", page.NextAfter, base.Add(2*time.Hour))
		}

		w = doGet(t, router, "/api/products/"+product.ID.String()+
			"/history?limit=3&after="+page.NextAfter.Format(time.RFC3339))
		if w.Code != http.StatusOK {
			t.Fatalf("second page status = %d: %s", w.Code, w.Body.String())
		}
		decodeJSON(t, w, &page)
		if len(page.Quotes) != 3 || page.Quotes[0].Price != "97" {
			t.Errorf("second page = %v, want 97 96 95", page.Quotes)
		}
	})

	t.Run("window bounds", func(t *testing.T) {
		from := base.Add(2 * time.Hour).Format(time.RFC3339)
		to := base.Add(5 * time.Hour).Format(time.RFC3339)
		w := doGet(t, router, "/api/products/"+product.ID.String()+"/history?from="+from+"&to="+to)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		var page struct {
			Quotes []struct {
				Price string `json:"price"`
			} `json:"quotes"`
		}
		decodeJSON(t, w, &page)
		if len(page.Quotes) != 3 {
			t.Fatalf("window rows = %d, want 3 (from inclusive, to exclusive)", len(page.Quotes))
		}
		if page.Quotes[0].Price != "98" || page.Quotes[2].Price != "96" {
			t.Errorf("window = %v, want 98 97 96", page.Quotes)
		}
	})

	t.Run("bad timestamp", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+product.ID.String()+"/history?from=yesterday")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+uuid.NewString()+"/history")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestGetTrend(t *testing.T) {
	h, cat, st := newTestHandler()
	router := h.Router()

	rising := seedProduct(cat, "rising")
	base := time.Now().UTC().Add(-7 * time.Hour)
	seedQuotes(t, st, rising.ID, base, "100", "105", "110", "115", "120", "125", "130")

	thin := seedProduct(cat, "thin")
	seedQuotes(t, st, thin.ID, base, "100", "101")

	t.Run("rising series", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+rising.ID.String()+"/trend")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Insufficient bool    `json:"insufficient"`
			Direction    string  `json:"direction"`
			Magnitude    float64 `json:"magnitude"`
			SampleSize   int     `json:"sample_size"`
		}
		decodeJSON(t, w, &resp)
		if resp.Insufficient {
			t.Fatal("insufficient = true with 7 quotes")
		}
		if resp.Direction != "up" || resp.Magnitude <= 0 {
			t.Errorf("signal = %s %.2f, want up with positive magnitude", resp.Direction, resp.Magnitude)
		}
		if resp.SampleSize != 7 {
			t.Errorf("sample_size = %d, want 7", resp.SampleSize)
		}
	})

	t.Run("thin series", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+thin.ID.String()+"/trend")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Insufficient bool `json:"insufficient"`
			SampleSize   int  `json:"sample_size"`
		}
		decodeJSON(t, w, &resp)
		if !resp.Insufficient || resp.SampleSize != 2 {
			t.Errorf("signal = %+v, want insufficient with 2 samples", resp)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		w := doGet(t, router, "/api/products/"+uuid.NewString()+"/trend")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}
