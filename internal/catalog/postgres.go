package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/shopspring/decimal"
)

// Postgres is the production catalog over the application's tables.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a catalog over an existing pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Migrate creates the catalog tables if they do not exist. In production
// the surrounding application owns these tables; this bootstrap covers
// development databases.
func (c *Postgres) Migrate(ctx context.Context) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id                  UUID PRIMARY KEY,
			name                TEXT        NOT NULL,
			url                 TEXT        NOT NULL,
			site                TEXT        NOT NULL DEFAULT '',
			currency            TEXT        NOT NULL DEFAULT 'INR',
			active              BOOLEAN     NOT NULL DEFAULT TRUE,
			min_update_interval BIGINT      NOT NULL DEFAULT 0,
			last_update         TIMESTAMPTZ,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id            BIGSERIAL PRIMARY KEY,
			product_id    UUID          NOT NULL REFERENCES products(id),
			kind          TEXT          NOT NULL,
			threshold     NUMERIC(14,2) NOT NULL,
			mode          TEXT          NOT NULL DEFAULT 'percent',
			channels      TEXT[]        NOT NULL DEFAULT '{}',
			active        BOOLEAN       NOT NULL DEFAULT TRUE,
			cooldown      BIGINT        NOT NULL DEFAULT 0,
			last_fired_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_rules_product ON alert_rules (product_id) WHERE active`,
	}

	for _, ddl := range ddls {
		if _, err := c.db.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("catalog migrate: %w", err)
		}
	}
	return nil
}

const productColumns = `id, name, url, site, currency, active, min_update_interval, last_update, created_at`

// ListProducts returns every product, newest first.
func (c *Postgres) ListProducts(ctx context.Context) ([]model.Product, error) {
	return c.listProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
}

// ListActiveProducts returns products eligible for updating.
func (c *Postgres) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	return c.listProducts(ctx, `SELECT `+productColumns+` FROM products WHERE active ORDER BY created_at DESC`)
}

func (c *Postgres) listProducts(ctx context.Context, sql string) ([]model.Product, error) {
	rows, err := c.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns one product by ID regardless of active state.
func (c *Postgres) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := c.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// TouchLastUpdate records when a product last updated successfully.
func (c *Postgres) TouchLastUpdate(ctx context.Context, id uuid.UUID, at time.Time) error {
	ct, err := c.db.Exec(ctx, `UPDATE products SET last_update = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last_update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveRules returns the active alert rules for a product.
func (c *Postgres) ActiveRules(ctx context.Context, productID uuid.UUID) ([]model.AlertRule, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, product_id, kind, threshold::text, mode, channels, active, cooldown, last_fired_at
		FROM alert_rules
		WHERE product_id = $1 AND active
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.AlertRule
	for rows.Next() {
		var (
			r             model.AlertRule
			thresholdText string
			cooldownSecs  int64
			lastFired     *time.Time
		)
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Kind, &thresholdText, &r.Mode, &r.Channels, &r.Active, &cooldownSecs, &lastFired); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		threshold, err := decimal.NewFromString(thresholdText)
		if err != nil {
			return nil, fmt.Errorf("parse threshold %q: %w", thresholdText, err)
		}
		r.Threshold = threshold
		r.Cooldown = time.Duration(cooldownSecs) * time.Second
		r.LastFiredAt = lastFired
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// ClaimFiring claims the right to fire through a guarded update. The row
// predicate is the atomicity: two concurrent claimants both match only
// until the first commit, so exactly one sees RowsAffected == 1.
func (c *Postgres) ClaimFiring(ctx context.Context, ruleID int64, cutoff, firedAt time.Time) (bool, error) {
	ct, err := c.db.Exec(ctx, `
		UPDATE alert_rules
		SET last_fired_at = $3
		WHERE id = $1 AND active AND (last_fired_at IS NULL OR last_fired_at <= $2)
	`, ruleID, cutoff, firedAt)
	if err != nil {
		return false, fmt.Errorf("claim firing: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p            model.Product
		intervalSecs int64
		lastUpdate   *time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &p.URL, &p.Site, &p.Currency, &p.Active, &intervalSecs, &lastUpdate, &p.CreatedAt); err != nil {
		return model.Product{}, err
	}
	p.MinUpdateInterval = time.Duration(intervalSecs) * time.Second
	if lastUpdate != nil {
		p.LastUpdate = *lastUpdate
	}
	return p, nil
}
