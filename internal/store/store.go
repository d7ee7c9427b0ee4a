package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pricetrack/pricetrack/internal/model"
)

var (
	// ErrWriteConflict is a transient write failure (serialization or
	// deadlock). The write may succeed if retried.
	ErrWriteConflict = errors.New("write conflict")

	// ErrUnavailable means the store as a whole cannot be reached. Callers
	// should stop issuing work rather than fail product by product.
	ErrUnavailable = errors.New("store unavailable")
)

// DefaultHistoryLimit caps a history page when the caller sets no limit.
const DefaultHistoryLimit = 100

// HistoryOptions bound a history query. Zero times mean an open bound.
type HistoryOptions struct {
	From  time.Time // inclusive lower bound
	To    time.Time // exclusive upper bound
	After time.Time // keyset cursor, exclusive; resumes a prior page
	Limit int       // page size (0 = DefaultHistoryLimit)
}

// Store is the append-only quote series.
type Store interface {
	// Append inserts one quote. A duplicate (product, observed_at) is an
	// idempotent no-op reported as (false, nil).
	Append(ctx context.Context, q model.Quote) (inserted bool, err error)

	// Latest returns the newest quote for a product, nil when none exists.
	Latest(ctx context.Context, productID uuid.UUID) (*model.Quote, error)

	// Recent returns up to n of the newest quotes in ascending order.
	Recent(ctx context.Context, productID uuid.UUID, n int) ([]model.Quote, error)

	// History returns one ascending page of quotes within the options'
	// bounds. Paging with After is restartable: the cursor carries all
	// iteration state.
	History(ctx context.Context, productID uuid.UUID, opts HistoryOptions) ([]model.Quote, error)
}

// HistoryIterator walks a product's history page by page. It holds no
// server-side state, so a failed iteration can resume from the last
// observed cursor with a fresh iterator.
type HistoryIterator struct {
	store     Store
	productID uuid.UUID
	opts      HistoryOptions

	page []model.Quote
	idx  int
	done bool
	err  error
}

// NewHistoryIterator creates an iterator over store history.
func NewHistoryIterator(s Store, productID uuid.UUID, opts HistoryOptions) *HistoryIterator {
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	return &HistoryIterator{store: s, productID: productID, opts: opts}
}

// Next returns the next quote in ascending order. It reports false when
// the series is exhausted or an error occurred; check Err afterwards.
func (it *HistoryIterator) Next(ctx context.Context) (model.Quote, bool) {
	if it.err != nil || (it.done && it.idx >= len(it.page)) {
		return model.Quote{}, false
	}

	if it.idx >= len(it.page) {
		page, err := it.store.History(ctx, it.productID, it.opts)
		if err != nil {
			it.err = err
			return model.Quote{}, false
		}
		if len(page) == 0 {
			it.done = true
			return model.Quote{}, false
		}
		it.page = page
		it.idx = 0
		it.opts.After = page[len(page)-1].ObservedAt
		if len(page) < it.opts.Limit {
			it.done = true
		}
	}

	q := it.page[it.idx]
	it.idx++
	return q, true
}

// Err returns the error that stopped iteration, if any.
func (it *HistoryIterator) Err() error {
	return it.err
}

// Cursor returns the current keyset position. Feeding it back through
// HistoryOptions.After resumes iteration after the last returned quote.
func (it *HistoryIterator) Cursor() time.Time {
	if it.idx > 0 && it.idx <= len(it.page) {
		return it.page[it.idx-1].ObservedAt
	}
	return it.opts.After
}
