package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pricetrack/pricetrack/internal/model"
)

// Memory is an in-memory quote store for tests and local preview runs.
// It honors the same semantics as Postgres: append-only, duplicate
// (product, observed_at) is a no-op, reads are ascending.
type Memory struct {
	mu     sync.RWMutex
	quotes map[uuid.UUID][]model.Quote // ascending by ObservedAt
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{quotes: make(map[uuid.UUID][]model.Quote)}
}

// Append inserts one quote, keeping the series sorted.
func (m *Memory) Append(_ context.Context, q model.Quote) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	series := m.quotes[q.ProductID]
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].ObservedAt.Before(q.ObservedAt)
	})
	if i < len(series) && series[i].ObservedAt.Equal(q.ObservedAt) {
		return false, nil
	}

	series = append(series, model.Quote{})
	copy(series[i+1:], series[i:])
	series[i] = q
	m.quotes[q.ProductID] = series
	return true, nil
}

// Latest returns the newest quote for a product, nil when none exists.
func (m *Memory) Latest(_ context.Context, productID uuid.UUID) (*model.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.quotes[productID]
	if len(series) == 0 {
		return nil, nil
	}
	q := series[len(series)-1]
	return &q, nil
}

// Recent returns up to n of the newest quotes in ascending order.
func (m *Memory) Recent(_ context.Context, productID uuid.UUID, n int) ([]model.Quote, error) {
	if n <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.quotes[productID]
	if len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]model.Quote, len(series))
	copy(out, series)
	return out, nil
}

// History returns one ascending page of quotes within the options' bounds.
func (m *Memory) History(_ context.Context, productID uuid.UUID, opts HistoryOptions) ([]model.Quote, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Quote
	for _, q := range m.quotes[productID] {
		if !opts.From.IsZero() && q.ObservedAt.Before(opts.From) {
			continue
		}
		if !opts.After.IsZero() && !q.ObservedAt.After(opts.After) {
			continue
		}
		if !opts.To.IsZero() && !q.ObservedAt.Before(opts.To) {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len reports how many quotes a product has. Test helper.
func (m *Memory) Len(productID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quotes[productID])
}
