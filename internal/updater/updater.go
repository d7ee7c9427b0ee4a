package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricetrack/pricetrack/internal/alert"
	"github.com/pricetrack/pricetrack/internal/catalog"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/pricetrack/pricetrack/internal/normalize"
	"github.com/pricetrack/pricetrack/internal/source"
	"github.com/pricetrack/pricetrack/internal/store"
	"github.com/pricetrack/pricetrack/internal/trend"
)

// AdapterResolver maps a product's site identifier to its source adapter.
type AdapterResolver interface {
	Lookup(site string) (source.Adapter, error)
}

// Config holds engine defaults.
type Config struct {
	Concurrency       int           // Max concurrent product units (default: 5)
	MinUpdateInterval time.Duration // Eligibility window for products without their own (default: 6h)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       5,
		MinUpdateInterval: 6 * time.Hour,
	}
}

// Options scope a single run.
type Options struct {
	ProductID      *uuid.UUID // Restrict the run to one product
	Force          bool       // Ignore the min-update-interval check
	DryRun         bool       // Stop after normalize; no writes, no alerts
	MaxConcurrency int        // Override Config.Concurrency when > 0
}

// RunResult aggregates the outcomes of one update pass.
type RunResult struct {
	Started  time.Time
	Duration time.Duration
	Outcomes []model.UpdateOutcome

	Updated   int
	Unchanged int
	Skipped   int
	Failures  int

	// Fatal is set when the run aborted early, e.g. the price store
	// went unavailable mid-batch.
	Fatal error
}

// Failed reports whether the run should map to a non-zero exit.
func (r *RunResult) Failed() bool {
	return r.Fatal != nil || r.Failures > 0
}

func (r *RunResult) record(out model.UpdateOutcome) {
	r.Outcomes = append(r.Outcomes, out)
	switch out.Status {
	case model.StatusUpdated:
		r.Updated++
	case model.StatusUnchanged:
		r.Unchanged++
	case model.StatusSkippedRecent:
		r.Skipped++
	case model.StatusFailed:
		r.Failures++
	}
}

// Engine runs product updates against the catalog and price store.
type Engine struct {
	cfg        Config
	catalog    catalog.Catalog
	store      store.Store
	sources    AdapterResolver
	predictor  *trend.Heuristic
	evaluator  *alert.Evaluator
	dispatcher alert.Dispatcher
	logger     *slog.Logger

	locks keyedMutex
}

// New creates an update engine. dispatcher may be nil when fired alerts
// only need to appear in outcomes.
func New(cfg Config, cat catalog.Catalog, st store.Store, sources AdapterResolver, predictor *trend.Heuristic, evaluator *alert.Evaluator, dispatcher alert.Dispatcher, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MinUpdateInterval <= 0 {
		cfg.MinUpdateInterval = def.MinUpdateInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		catalog:    cat,
		store:      st,
		sources:    sources,
		predictor:  predictor,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run executes one update pass and reports per-product outcomes. Context
// cancellation stops dispatching new units; in-flight units finish on
// their own fetch deadlines.
func (e *Engine) Run(ctx context.Context, opts Options) *RunResult {
	result := &RunResult{Started: time.Now().UTC()}
	defer func() { result.Duration = time.Since(result.Started) }()

	products, err := e.selectProducts(ctx, opts)
	if err != nil {
		result.Fatal = err
		return result
	}
	if len(products) == 0 {
		e.logger.Info("no products due for update")
		return result
	}

	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = e.cfg.Concurrency
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := time.Now().UTC()
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, product := range products {
		if skip, reason := e.skipReason(product, opts, now); skip {
			mu.Lock()
			result.record(model.UpdateOutcome{
				ProductID: product.ID,
				Status:    model.StatusSkippedRecent,
				Reason:    reason,
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(p model.Product) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				return
			}
			// The select can pick the semaphore even when the run was
			// just aborted; never start a unit after cancellation.
			if runCtx.Err() != nil {
				return
			}

			out, fatal := e.updateOne(runCtx, p, opts)

			mu.Lock()
			result.record(out)
			if fatal != nil && result.Fatal == nil {
				result.Fatal = fatal
			}
			mu.Unlock()

			if fatal != nil {
				cancel()
			}
		}(product)
	}

	wg.Wait()

	e.logger.Info("update run complete",
		"products", len(products),
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"skipped", result.Skipped,
		"failed", result.Failures,
		"duration", time.Since(result.Started),
	)

	return result
}

// selectProducts resolves the run scope: one product by id, or every
// active product in the catalog.
func (e *Engine) selectProducts(ctx context.Context, opts Options) ([]model.Product, error) {
	if opts.ProductID != nil {
		p, err := e.catalog.GetProduct(ctx, *opts.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", opts.ProductID, err)
		}
		return []model.Product{*p}, nil
	}

	products, err := e.catalog.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	return products, nil
}

// skipReason decides eligibility. Single-product scope and Force bypass
// the interval check; nothing bypasses Active.
func (e *Engine) skipReason(p model.Product, opts Options, now time.Time) (bool, string) {
	if !p.Active {
		return true, "product inactive"
	}
	if opts.Force || opts.ProductID != nil || p.LastUpdate.IsZero() {
		return false, ""
	}

	interval := p.MinUpdateInterval
	if interval <= 0 {
		interval = e.cfg.MinUpdateInterval
	}
	if elapsed := now.Sub(p.LastUpdate); elapsed < interval {
		return true, fmt.Sprintf("updated %s ago, interval %s", elapsed.Round(time.Second), interval)
	}
	return false, ""
}

// updateOne runs a single product unit. The returned error is non-nil
// only for run-fatal conditions; everything else lands in the outcome.
func (e *Engine) updateOne(ctx context.Context, p model.Product, opts Options) (out model.UpdateOutcome, fatal error) {
	start := time.Now()
	out = model.UpdateOutcome{ProductID: p.ID, Status: model.StatusFailed}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("update unit panicked", "product_id", p.ID, "panic", r)
			out = model.UpdateOutcome{
				ProductID: p.ID,
				Status:    model.StatusFailed,
				Reason:    fmt.Sprintf("panic: %v", r),
			}
			fatal = nil
		}
		out.Duration = time.Since(start)
	}()

	site := p.Site
	if site == "" {
		site = source.DetectSite(p.URL)
	}
	adapter, err := e.sources.Lookup(site)
	if err != nil {
		out.Reason = err.Error()
		return out, nil
	}

	raw, err := adapter.Fetch(ctx, p)
	if err != nil {
		out.Reason = err.Error()
		return out, nil
	}
	out.ResponseTime = raw.ResponseTime

	quote, err := normalize.Quote(raw, p)
	if err != nil {
		out.Reason = fmt.Sprintf("normalize: %v", err)
		return out, nil
	}
	out.NewQuote = &quote

	// From here on the product's history is read and written; hold the
	// product lock through alert evaluation.
	unlock := e.locks.lock(p.ID)
	defer unlock()

	previous, err := e.store.Latest(ctx, p.ID)
	if err != nil {
		return e.storeFailure(out, "read latest quote", err)
	}
	if previous != nil {
		price := previous.Price
		out.OldPrice = &price
	}

	if opts.DryRun {
		out.Status = model.StatusUnchanged
		if previous == nil || !previous.Price.Equal(quote.Price) {
			out.Status = model.StatusUpdated
		}
		out.Reason = "dry run"
		return out, nil
	}

	inserted, err := e.store.Append(ctx, quote)
	if errors.Is(err, store.ErrWriteConflict) {
		e.logger.Warn("append conflict, retrying once", "product_id", p.ID)
		inserted, err = e.store.Append(ctx, quote)
	}
	if err != nil {
		return e.storeFailure(out, "append quote", err)
	}

	switch {
	case !inserted:
		out.Status = model.StatusUnchanged
		out.Reason = "duplicate observation"
	case previous != nil && previous.Price.Equal(quote.Price):
		out.Status = model.StatusUnchanged
	default:
		out.Status = model.StatusUpdated
	}

	signal := model.TrendSignal{Insufficient: true, Direction: model.TrendFlat}
	recent, err := e.store.Recent(ctx, p.ID, e.predictor.Window())
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return e.storeFailure(out, "read recent quotes", err)
	case err != nil:
		e.logger.Warn("trend input unavailable", "product_id", p.ID, "error", err)
	default:
		signal = e.predictor.Predict(recent)
	}

	rules, err := e.catalog.ActiveRules(ctx, p.ID)
	if err != nil {
		e.logger.Warn("alert rules unavailable", "product_id", p.ID, "error", err)
	} else if e.evaluator != nil && len(rules) > 0 {
		events := e.evaluator.Evaluate(ctx, p, quote, previous, signal, rules)
		out.FiredAlerts = events
		if e.dispatcher != nil {
			for _, event := range events {
				e.dispatcher.Dispatch(ctx, event)
			}
		}
	}

	if err := e.catalog.TouchLastUpdate(ctx, p.ID, time.Now().UTC()); err != nil {
		e.logger.Warn("last update not recorded", "product_id", p.ID, "error", err)
	}

	return out, nil
}

// storeFailure shapes a store error into the unit outcome, promoting
// store-wide unavailability to a run-fatal error.
func (e *Engine) storeFailure(out model.UpdateOutcome, op string, err error) (model.UpdateOutcome, error) {
	out.Status = model.StatusFailed
	out.Reason = fmt.Sprintf("%s: %v", op, err)
	if errors.Is(err, store.ErrUnavailable) {
		return out, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
