package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pricetrack/pricetrack/internal/model"
)

// Memory is an in-memory catalog for tests. Claim semantics match the
// Postgres guarded update: compare-and-set under one lock.
type Memory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	rules    map[int64]model.AlertRule
	nextRule int64
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[uuid.UUID]model.Product),
		rules:    make(map[int64]model.AlertRule),
	}
}

// PutProduct inserts or replaces a product. Test helper; in production
// the surrounding application owns these rows.
func (m *Memory) PutProduct(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.products[p.ID] = p
}

// PutRule inserts or replaces a rule, assigning an ID when zero. Test helper.
func (m *Memory) PutRule(r model.AlertRule) model.AlertRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		m.nextRule++
		r.ID = m.nextRule
	} else if r.ID > m.nextRule {
		m.nextRule = r.ID
	}
	m.rules[r.ID] = r
	return r
}

// Rule returns a rule by ID. Test helper.
func (m *Memory) Rule(id int64) (model.AlertRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	return r, ok
}

// ListProducts returns every product, newest first.
func (m *Memory) ListProducts(_ context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(model.Product) bool { return true }), nil
}

// ListActiveProducts returns products eligible for updating.
func (m *Memory) ListActiveProducts(_ context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p model.Product) bool { return p.Active }), nil
}

// collect copies matching products, newest first. Callers hold the lock.
func (m *Memory) collect(keep func(model.Product) bool) []model.Product {
	var out []model.Product
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetProduct returns one product by ID regardless of active state.
func (m *Memory) GetProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// TouchLastUpdate records when a product last updated successfully.
func (m *Memory) TouchLastUpdate(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.LastUpdate = at
	m.products[id] = p
	return nil
}

// ActiveRules returns the active alert rules for a product.
func (m *Memory) ActiveRules(_ context.Context, productID uuid.UUID) ([]model.AlertRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []model.AlertRule
	for _, r := range m.rules {
		if r.ProductID == productID && r.Active {
			rules = append(rules, r)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

// ClaimFiring claims the right to fire via compare-and-set.
func (m *Memory) ClaimFiring(_ context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[ruleID]
	if !ok || !r.Active {
		return false, nil
	}
	if r.LastFiredAt != nil && r.LastFiredAt.After(cutoff) {
		return false, nil
	}

	fired := firedAt
	r.LastFiredAt = &fired
	m.rules[ruleID] = r
	return true, nil
}
