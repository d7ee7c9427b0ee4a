package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricetrack/pricetrack/internal/catalog"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/store"
	"github.com/pricetrack/pricetrack/internal/trend"
	"github.com/pricetrack/pricetrack/internal/version"
)

// changeWindowDays bounds the price-change metric on product detail.
const changeWindowDays = 30

// Handler serves the read-only API over the catalog and price store.
type Handler struct {
	catalog   catalog.Catalog
	store     store.Store
	predictor *trend.Heuristic
	logger    *slog.Logger
}

// NewHandler creates the read handler. A nil logger falls back to
// slog.Default().
func NewHandler(cat catalog.Catalog, st store.Store, predictor *trend.Heuristic, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:   cat,
		store:     st,
		predictor: predictor,
		logger:    logger,
	}
}

// Router builds the gin engine with every read route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/history", h.GetHistory)
		api.GET("/products/:id/trend", h.GetTrend)
	}

	return router
}

type quoteResponse struct {
	ObservedAt   time.Time       `json:"observed_at"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Availability string          `json:"availability"`
	Source       string          `json:"source"`
}

func toQuoteResponse(q model.Quote) quoteResponse {
	return quoteResponse{
		ObservedAt:   q.ObservedAt,
		Price:        q.Price,
		Currency:     q.Currency,
		Availability: string(q.Availability),
		Source:       q.Source,
	}
}

type productResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	URL               string     `json:"url"`
	Site              string     `json:"site"`
	Currency          string     `json:"currency"`
	Active            bool       `json:"active"`
	MinUpdateInterval int64      `json:"min_update_interval_seconds"`
	LastUpdate        *time.Time `json:"last_update,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`

	LatestPrice  *decimal.Decimal `json:"latest_price,omitempty"`
	Availability string           `json:"availability,omitempty"`
}

func (h *Handler) toProductResponse(ctx context.Context, p model.Product) productResponse {
	resp := productResponse{
		ID:                p.ID,
		Name:              p.Name,
		URL:               p.URL,
		Site:              p.Site,
		Currency:          p.Currency,
		Active:            p.Active,
		MinUpdateInterval: int64(p.MinUpdateInterval.Seconds()),
		CreatedAt:         p.CreatedAt,
	}
	if !p.LastUpdate.IsZero() {
		last := p.LastUpdate
		resp.LastUpdate = &last
	}

	latest, err := h.store.Latest(ctx, p.ID)
	if err != nil {
		h.logger.Warn("latest quote unavailable", "product_id", p.ID, "error", err)
		return resp
	}
	if latest != nil {
		price := latest.Price
		resp.LatestPrice = &price
		resp.Availability = string(latest.Availability)
	}
	return resp
}

type productDetailResponse struct {
	productResponse
	Latest             *quoteResponse `json:"latest,omitempty"`
	PriceChangePercent *float64       `json:"price_change_percent,omitempty"`
}

type historyResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quotes    []quoteResponse `json:"quotes"`
	NextAfter *time.Time      `json:"next_after,omitempty"`
}

type trendResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	Insufficient bool      `json:"insufficient"`
	Direction    string    `json:"direction"`
	Magnitude    float64   `json:"magnitude"`
	Confidence   float64   `json:"confidence"`
	DemandScore  float64   `json:"demand_score"`
	SampleSize   int       `json:"sample_size"`
}

// Health reports liveness and the running build.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

// ListProducts returns every catalog product with its latest quote.
func (h *Handler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		h.logger.Error("list products failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, h.toProductResponse(ctx, p))
	}
	c.JSON(http.StatusOK, out)
}

// GetProduct returns one product with its latest quote and the price
// change over the last 30 days.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("get product failed", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}

	resp := productDetailResponse{
		productResponse:    h.toProductResponse(ctx, *p),
		PriceChangePercent: h.changePercent(ctx, p.ID),
	}
	if latest, err := h.store.Latest(ctx, p.ID); err == nil && latest != nil {
		q := toQuoteResponse(*latest)
		resp.Latest = &q
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistory returns one ascending page of quotes. Query parameters:
// from, to, after (RFC 3339) and limit.
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.catalog.GetProduct(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("get product failed", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}

	opts, err := historyOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quotes, err := h.store.History(ctx, id, opts)
	if err != nil {
		h.logger.Error("history read failed", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	resp := historyResponse{ProductID: id, Quotes: make([]quoteResponse, 0, len(quotes))}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, toQuoteResponse(q))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}
	if len(quotes) == limit {
		next := quotes[len(quotes)-1].ObservedAt
		resp.NextAfter = &next
	}
	c.JSON(http.StatusOK, resp)
}

// GetTrend computes the trend signal from the product's recent quotes.
func (h *Handler) GetTrend(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.catalog.GetProduct(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("get product failed", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}

	recent, err := h.store.Recent(ctx, id, h.predictor.Window())
	if err != nil {
		h.logger.Error("recent quotes read failed", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch quotes"})
		return
	}

	signal := h.predictor.Predict(recent)
	c.JSON(http.StatusOK, trendResponse{
		ProductID:    id,
		Insufficient: signal.Insufficient,
		Direction:    string(signal.Direction),
		Magnitude:    signal.Magnitude,
		Confidence:   signal.Confidence,
		DemandScore:  signal.DemandScore,
		SampleSize:   signal.SampleSize,
	})
}

// changePercent is the dashboard metric: relative change between the
// oldest and newest quote of the change window, nil when history is too
// thin to compare.
func (h *Handler) changePercent(ctx context.Context, productID uuid.UUID) *float64 {
	from := time.Now().UTC().AddDate(0, 0, -changeWindowDays)
	quotes, err := h.store.History(ctx, productID, store.HistoryOptions{From: from})
	if err != nil || len(quotes) < 2 {
		return nil
	}
	first := quotes[0].Price
	if !first.IsPositive() {
		return nil
	}
	last := quotes[len(quotes)-1].Price
	pct, _ := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return &pct
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return uuid.Nil, false
	}
	return id, true
}

// historyOptions parses the paging query parameters.
func historyOptions(c *gin.Context) (store.HistoryOptions, error) {
	var opts store.HistoryOptions

	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &opts.From},
		{"to", &opts.To},
		{"after", &opts.After},
	} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, errors.New("invalid " + bound.name + " timestamp, want RFC 3339")
		}
		*bound.dst = t
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return opts, errors.New("invalid limit")
		}
		if n > store.DefaultHistoryLimit {
			n = store.DefaultHistoryLimit
		}
		opts.Limit = n
	}

	return opts, nil
}
