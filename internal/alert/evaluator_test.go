package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricetrack/pricetrack/internal/catalog"
	"github.com/pricetrack/pricetrack/internal/model"
)

type claimerFunc func(ctx context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error)

func (f claimerFunc) ClaimFiring(ctx context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error) {
	return f(ctx, ruleID, cutoff, firedAt)
}

// alwaysClaim grants every cool-down claim so condition logic can be
// tested in isolation.
var alwaysClaim = claimerFunc(func(context.Context, int64, time.Time, time.Time) (bool, error) {
	return true, nil
})

func testProduct() model.Product {
	return model.Product{
		ID:       uuid.New(),
		Name:     "Wireless Headphones",
		URL:      "https://www.amazon.in/dp/B0TEST",
		Site:     "amazon",
		Currency: "INR",
		Active:   true,
	}
}

func quote(p model.Product, price string, at time.Time) model.Quote {
	return model.Quote{
		ProductID:    p.ID,
		ObservedAt:   at,
		Price:        decimal.RequireFromString(price),
		Currency:     p.Currency,
		Availability: model.AvailabilityInStock,
		Source:       p.Site,
	}
}

func TestEvaluatePriceDrop(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mode      model.ThresholdMode
		threshold string
		latest    string
		previous  string // empty = no previous quote
		wantFire  bool
	}{
		{"percent exact threshold", model.ModePercent, "5", "95", "100", true},
		{"percent above threshold", model.ModePercent, "5", "90", "100", true},
		{"percent below threshold", model.ModePercent, "5", "96", "100", false},
		{"percent price rose", model.ModePercent, "5", "110", "100", false},
		{"percent no previous", model.ModePercent, "5", "95", "", false},
		{"absolute crossed down", model.ModeAbsolute, "90", "89", "100", true},
		{"absolute exact threshold", model.ModeAbsolute, "90", "90", "100", true},
		{"absolute first observation", model.ModeAbsolute, "90", "85", "", true},
		{"absolute still above", model.ModeAbsolute, "90", "95", "100", false},
		{"absolute already below", model.ModeAbsolute, "90", "85", "88", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(alwaysClaim)
			rule := model.AlertRule{
				ID:        1,
				ProductID: product.ID,
				Kind:      model.RulePriceDrop,
				Threshold: decimal.RequireFromString(tt.threshold),
				Mode:      tt.mode,
				Channels:  []string{"email"},
				Active:    true,
			}

			var previous *model.Quote
			if tt.previous != "" {
				q := quote(product, tt.previous, now.Add(-time.Hour))
				previous = &q
			}
			latest := quote(product, tt.latest, now)

			events := e.Evaluate(context.Background(), product, latest, previous, model.TrendSignal{}, []model.AlertRule{rule})
			if fired := len(events) == 1; fired != tt.wantFire {
				t.Fatalf("Evaluate() fired = %v, want %v (events %v)", fired, tt.wantFire, events)
			}
			if !tt.wantFire {
				return
			}
			event := events[0]
			if event.RuleID != rule.ID || event.ProductID != product.ID {
				t.Errorf("event identity = rule %d product %v", event.RuleID, event.ProductID)
			}
			if !event.Price.Equal(latest.Price) {
				t.Errorf("event.Price = %v, want %v", event.Price, latest.Price)
			}
			if !event.FiredAt.Equal(now) {
				t.Errorf("event.FiredAt = %v, want %v", event.FiredAt, now)
			}
			if !strings.Contains(event.Message, product.Name) {
				t.Errorf("event.Message = %q, want product name included", event.Message)
			}
		})
	}
}

func TestEvaluatePriceIncrease(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mode      model.ThresholdMode
		threshold string
		latest    string
		previous  string
		wantFire  bool
	}{
		{"percent rise fires", model.ModePercent, "10", "111", "100", true},
		{"percent rise below threshold", model.ModePercent, "10", "105", "100", false},
		{"percent drop never fires", model.ModePercent, "10", "80", "100", false},
		{"absolute crossed up", model.ModeAbsolute, "120", "125", "110", true},
		{"absolute already above", model.ModeAbsolute, "120", "130", "125", false},
		{"absolute still below", model.ModeAbsolute, "120", "115", "110", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(alwaysClaim)
			rule := model.AlertRule{
				ID:        7,
				ProductID: product.ID,
				Kind:      model.RulePriceIncrease,
				Threshold: decimal.RequireFromString(tt.threshold),
				Mode:      tt.mode,
				Active:    true,
			}

			var previous *model.Quote
			if tt.previous != "" {
				q := quote(product, tt.previous, now.Add(-time.Hour))
				previous = &q
			}
			latest := quote(product, tt.latest, now)

			events := e.Evaluate(context.Background(), product, latest, previous, model.TrendSignal{}, []model.AlertRule{rule})
			if fired := len(events) == 1; fired != tt.wantFire {
				t.Errorf("Evaluate() fired = %v, want %v", fired, tt.wantFire)
			}
		})
	}
}

func TestEvaluateDemandSpike(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rule := model.AlertRule{
		ID:        3,
		ProductID: product.ID,
		Kind:      model.RuleDemandSpike,
		Threshold: decimal.NewFromInt(5),
		Mode:      model.ModePercent,
		Active:    true,
	}

	tests := []struct {
		name     string
		signal   model.TrendSignal
		wantFire bool
	}{
		{"upward above threshold", model.TrendSignal{Direction: model.TrendUp, Magnitude: 8.2, DemandScore: 0.7, SampleSize: 7}, true},
		{"upward at threshold", model.TrendSignal{Direction: model.TrendUp, Magnitude: 5, SampleSize: 7}, false},
		{"flat", model.TrendSignal{Direction: model.TrendFlat, Magnitude: 0.1, SampleSize: 7}, false},
		{"downward", model.TrendSignal{Direction: model.TrendDown, Magnitude: 9, SampleSize: 7}, false},
		{"insufficient", model.TrendSignal{Insufficient: true, Direction: model.TrendFlat, SampleSize: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(alwaysClaim)
			latest := quote(product, "99", now)
			events := e.Evaluate(context.Background(), product, latest, nil, tt.signal, []model.AlertRule{rule})
			if fired := len(events) == 1; fired != tt.wantFire {
				t.Errorf("Evaluate() fired = %v, want %v", fired, tt.wantFire)
			}
		})
	}
}

// TestEvaluateDropSequence walks a price series through a 5% drop rule
// whose cool-down still covers the first two qualifying drops. Only the
// 90 to 85 step may fire.
func TestEvaluateDropSequence(t *testing.T) {
	product := testProduct()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cat := catalog.NewMemory()
	cat.PutProduct(product)
	lastFired := t0
	rule := cat.PutRule(model.AlertRule{
		ProductID:   product.ID,
		Kind:        model.RulePriceDrop,
		Threshold:   decimal.NewFromInt(5),
		Mode:        model.ModePercent,
		Channels:    []string{"web"},
		Active:      true,
		Cooldown:    3 * time.Hour,
		LastFiredAt: &lastFired,
	})

	e := NewEvaluator(cat)

	prices := []string{"100", "95", "90", "85"}
	var fired []model.AlertEvent
	for i := 1; i < len(prices); i++ {
		previous := quote(product, prices[i-1], t0.Add(time.Duration(i-1)*time.Hour))
		latest := quote(product, prices[i], t0.Add(time.Duration(i)*time.Hour))
		events := e.Evaluate(context.Background(), product, latest, &previous, model.TrendSignal{}, []model.AlertRule{rule})
		fired = append(fired, events...)
	}

	if len(fired) != 1 {
		t.Fatalf("fired %d events, want exactly 1: %v", len(fired), fired)
	}
	event := fired[0]
	if !event.Price.Equal(decimal.NewFromInt(85)) {
		t.Errorf("event.Price = %v, want 85", event.Price)
	}
	if !event.PreviousPrice.Equal(decimal.NewFromInt(90)) {
		t.Errorf("event.PreviousPrice = %v, want 90", event.PreviousPrice)
	}
	if !strings.Contains(event.Message, "5.6%") {
		t.Errorf("event.Message = %q, want the 5.6%% drop mentioned", event.Message)
	}

	updated, ok := cat.Rule(rule.ID)
	if !ok || updated.LastFiredAt == nil {
		t.Fatal("rule LastFiredAt not recorded")
	}
	if want := t0.Add(3 * time.Hour); !updated.LastFiredAt.Equal(want) {
		t.Errorf("LastFiredAt = %v, want %v", updated.LastFiredAt, want)
	}
}

// TestEvaluateConcurrentCooldown races evaluations of the same triggered
// rule; the catalog claim must let exactly one through.
func TestEvaluateConcurrentCooldown(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cat := catalog.NewMemory()
	cat.PutProduct(product)
	rule := cat.PutRule(model.AlertRule{
		ProductID: product.ID,
		Kind:      model.RulePriceDrop,
		Threshold: decimal.NewFromInt(5),
		Mode:      model.ModePercent,
		Active:    true,
	})

	e := NewEvaluator(cat)
	previous := quote(product, "100", now.Add(-time.Hour))
	latest := quote(product, "90", now)

	var wg sync.WaitGroup
	var fired atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events := e.Evaluate(context.Background(), product, latest, &previous, model.TrendSignal{}, []model.AlertRule{rule})
			fired.Add(int32(len(events)))
		}()
	}
	wg.Wait()

	if got := fired.Load(); got != 1 {
		t.Errorf("concurrent evaluations fired %d events, want exactly 1", got)
	}
}

func TestEvaluateDefaultCooldown(t *testing.T) {
	product := testProduct()
	now := time.Now().UTC()

	cat := catalog.NewMemory()
	cat.PutProduct(product)

	recent := now.Add(-30 * time.Minute)
	blocked := cat.PutRule(model.AlertRule{
		ProductID:   product.ID,
		Kind:        model.RulePriceDrop,
		Threshold:   decimal.NewFromInt(5),
		Mode:        model.ModePercent,
		Active:      true,
		LastFiredAt: &recent,
	})
	stale := now.Add(-2 * time.Hour)
	open := cat.PutRule(model.AlertRule{
		ProductID:   product.ID,
		Kind:        model.RulePriceDrop,
		Threshold:   decimal.NewFromInt(5),
		Mode:        model.ModePercent,
		Active:      true,
		LastFiredAt: &stale,
	})

	e := NewEvaluator(cat, WithDefaultCooldown(time.Hour))
	previous := quote(product, "100", now.Add(-time.Minute))
	latest := quote(product, "90", now)

	events := e.Evaluate(context.Background(), product, latest, &previous, model.TrendSignal{}, []model.AlertRule{blocked, open})
	if len(events) != 1 {
		t.Fatalf("Evaluate() fired %d events, want 1", len(events))
	}
	if events[0].RuleID != open.ID {
		t.Errorf("fired rule %d, want %d (stale cool-down)", events[0].RuleID, open.ID)
	}
}

func TestEvaluateSkipsInactiveAndForeignRules(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	inactive := model.AlertRule{
		ID: 1, ProductID: product.ID, Kind: model.RulePriceDrop,
		Threshold: decimal.NewFromInt(5), Mode: model.ModePercent, Active: false,
	}
	foreign := model.AlertRule{
		ID: 2, ProductID: uuid.New(), Kind: model.RulePriceDrop,
		Threshold: decimal.NewFromInt(5), Mode: model.ModePercent, Active: true,
	}

	e := NewEvaluator(alwaysClaim)
	previous := quote(product, "100", now.Add(-time.Hour))
	latest := quote(product, "80", now)

	events := e.Evaluate(context.Background(), product, latest, &previous, model.TrendSignal{}, []model.AlertRule{inactive, foreign})
	if len(events) != 0 {
		t.Errorf("Evaluate() fired %d events, want 0", len(events))
	}
}

func TestEvaluateClaimErrorSuppressesFiring(t *testing.T) {
	product := testProduct()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	failing := claimerFunc(func(context.Context, int64, time.Time, time.Time) (bool, error) {
		return false, errors.New("catalog unavailable")
	})
	rule := model.AlertRule{
		ID: 1, ProductID: product.ID, Kind: model.RulePriceDrop,
		Threshold: decimal.NewFromInt(5), Mode: model.ModePercent, Active: true,
	}

	e := NewEvaluator(failing)
	previous := quote(product, "100", now.Add(-time.Hour))
	latest := quote(product, "80", now)

	events := e.Evaluate(context.Background(), product, latest, &previous, model.TrendSignal{}, []model.AlertRule{rule})
	if len(events) != 0 {
		t.Errorf("Evaluate() fired %d events despite claim error, want 0", len(events))
	}
}
