package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pricetrack/pricetrack/internal/model"
)

// ErrNotFound means the product or rule does not exist.
var ErrNotFound = errors.New("not found")

// Catalog provides engine access to products and alert rules.
type Catalog interface {
	// ListProducts returns every product, newest first.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// ListActiveProducts returns products eligible for updating.
	ListActiveProducts(ctx context.Context) ([]model.Product, error)

	// GetProduct returns one product by ID regardless of active state.
	// Returns ErrNotFound when no such product exists.
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// TouchLastUpdate records when a product last updated successfully.
	TouchLastUpdate(ctx context.Context, id uuid.UUID, at time.Time) error

	// ActiveRules returns the active alert rules for a product.
	ActiveRules(ctx context.Context, productID uuid.UUID) ([]model.AlertRule, error)

	// ClaimFiring atomically claims the right to fire a rule. The claim
	// succeeds only when the rule is active and has not fired after
	// cutoff; on success LastFiredAt becomes firedAt. Of any number of
	// concurrent claimants exactly one wins.
	ClaimFiring(ctx context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error)
}
