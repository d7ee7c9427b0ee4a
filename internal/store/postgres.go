package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pricetrack/pricetrack/internal/model"
	"github.com/shopspring/decimal"
)

// Postgres is the production quote store.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a store over an existing pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Migrate creates the quotes table and indexes if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS quotes (
			product_id   UUID          NOT NULL,
			observed_at  TIMESTAMPTZ   NOT NULL,
			price        NUMERIC(14,2) NOT NULL,
			currency     TEXT          NOT NULL,
			availability TEXT          NOT NULL DEFAULT 'unknown',
			source       TEXT          NOT NULL DEFAULT '',
			raw_ref      TEXT          NOT NULL DEFAULT '',
			PRIMARY KEY (product_id, observed_at)
		)`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create quotes table: %w", classify(err))
	}
	return nil
}

// Append inserts one quote. The primary key makes re-observation of the
// same instant a conflict, which ON CONFLICT turns into a silent no-op.
func (s *Postgres) Append(ctx context.Context, q model.Quote) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO quotes (product_id, observed_at, price, currency, availability, source, raw_ref)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		ON CONFLICT (product_id, observed_at) DO NOTHING
	`, q.ProductID, q.ObservedAt, q.Price.String(), q.Currency, string(q.Availability), q.Source, q.RawRef)
	if err != nil {
		return false, classify(err)
	}

	inserted := ct.RowsAffected() == 1
	if !inserted {
		s.logger.Debug("duplicate quote ignored",
			"product_id", q.ProductID,
			"observed_at", q.ObservedAt,
		)
	}
	return inserted, nil
}

const quoteColumns = `product_id, observed_at, price::text, currency, availability, source, raw_ref`

// Latest returns the newest quote for a product, nil when none exists.
func (s *Postgres) Latest(ctx context.Context, productID uuid.UUID) (*model.Quote, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE product_id = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`, productID)

	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &q, nil
}

// Recent returns up to n of the newest quotes in ascending order.
func (s *Postgres) Recent(ctx context.Context, productID uuid.UUID, n int) ([]model.Quote, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE product_id = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`, productID, n)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	quotes, err := collectQuotes(rows)
	if err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(quotes)-1; i < j; i, j = i+1, j-1 {
		quotes[i], quotes[j] = quotes[j], quotes[i]
	}
	return quotes, nil
}

// History returns one ascending page of quotes within the options' bounds.
func (s *Postgres) History(ctx context.Context, productID uuid.UUID, opts HistoryOptions) ([]model.Quote, error) {
	sql, args := historyQuery(productID, opts)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return collectQuotes(rows)
}

// historyQuery builds the page query. Bounds apply independently so a
// resumed cursor still respects From and To.
func historyQuery(productID uuid.UUID, opts HistoryOptions) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + quoteColumns + ` FROM quotes WHERE product_id = $1`)
	args := []any{productID}

	if !opts.From.IsZero() {
		args = append(args, opts.From)
		fmt.Fprintf(&b, " AND observed_at >= $%d", len(args))
	}
	if !opts.After.IsZero() {
		args = append(args, opts.After)
		fmt.Fprintf(&b, " AND observed_at > $%d", len(args))
	}
	if !opts.To.IsZero() {
		args = append(args, opts.To)
		fmt.Fprintf(&b, " AND observed_at < $%d", len(args))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY observed_at ASC LIMIT $%d", len(args))

	return b.String(), args
}

func scanQuote(row pgx.Row) (model.Quote, error) {
	var (
		q            model.Quote
		priceText    string
		availability string
	)
	if err := row.Scan(&q.ProductID, &q.ObservedAt, &priceText, &q.Currency, &availability, &q.Source, &q.RawRef); err != nil {
		return model.Quote{}, err
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return model.Quote{}, fmt.Errorf("parse stored price %q: %w", priceText, err)
	}
	q.Price = price
	q.Availability = model.Availability(availability)
	return q, nil
}

func collectQuotes(rows pgx.Rows) ([]model.Quote, error) {
	var quotes []model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return quotes, nil
}

// classify maps driver errors onto the store's error vocabulary.
// Serialization failures and deadlocks are retryable conflicts; connection
// and resource exhaustion classes mean the store is gone for everyone.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return fmt.Errorf("%w: %s", ErrWriteConflict, pgErr.Code)
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			pgErr.Code == "57P01":
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		}
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Anything else at the transport level means we cannot reach the store.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
