package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/limitbot/internal/domain"
)

// OrderAuditStore implements domain.OrderAuditStore using PostgreSQL. Rows
// are written by the trading path and read only by reporting and archival.
type OrderAuditStore struct {
	pool *pgxpool.Pool
}

// NewOrderAuditStore creates an OrderAuditStore backed by the given pool.
func NewOrderAuditStore(pool *pgxpool.Pool) *OrderAuditStore {
	return &OrderAuditStore{pool: pool}
}

// Insert records a submission attempt, successful or not.
func (s *OrderAuditStore) Insert(ctx context.Context, a domain.OrderAudit) error {
	const query = `
		INSERT INTO order_audit (
			id, exchange_id, market_slug, token_id, maker, side, order_type,
			price, maker_amount, taker_amount, salt, signature, status,
			error, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.ExchangeID, a.MarketSlug, a.TokenID, a.Maker,
		a.Side.String(), string(a.Type),
		a.Price, a.MakerAmount, a.TakerAmount, a.Salt, a.Signature,
		string(a.Status), a.Error, a.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order audit %s: %w", a.ID, err)
	}
	return nil
}

// UpdateStatus changes the recorded status of an audit row. The row may be
// addressed by either the client-generated id or the exchange order id, since
// cancellations only know the latter.
func (s *OrderAuditStore) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE order_audit SET status = $1, updated_at = NOW()
		 WHERE id = $2 OR exchange_id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update order audit status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const auditSelectCols = `id, exchange_id, market_slug, token_id, maker, side,
	order_type, price, maker_amount, taker_amount, salt, signature, status,
	error, submitted_at`

func scanAuditFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.OrderAudit, error) {
	var a domain.OrderAudit
	var side, orderType, status string

	err := scanner.Scan(
		&a.ID, &a.ExchangeID, &a.MarketSlug, &a.TokenID, &a.Maker, &side,
		&orderType, &a.Price, &a.MakerAmount, &a.TakerAmount, &a.Salt,
		&a.Signature, &status, &a.Error, &a.SubmittedAt,
	)
	if err != nil {
		return domain.OrderAudit{}, err
	}

	if side == "SELL" {
		a.Side = domain.SideSell
	} else {
		a.Side = domain.SideBuy
	}
	a.Type = domain.OrderType(orderType)
	a.Status = domain.OrderStatus(status)
	return a, nil
}

func scanAuditRows(rows pgx.Rows) ([]domain.OrderAudit, error) {
	var audits []domain.OrderAudit
	for rows.Next() {
		a, err := scanAuditFromRow(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// GetByID retrieves a single audit row by its client-generated id.
func (s *OrderAuditStore) GetByID(ctx context.Context, id string) (domain.OrderAudit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auditSelectCols+` FROM order_audit WHERE id = $1`, id)

	a, err := scanAuditFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.OrderAudit{}, domain.ErrNotFound
		}
		return domain.OrderAudit{}, fmt.Errorf("postgres: get order audit %s: %w", id, err)
	}
	return a, nil
}

// ListByMarket returns audit rows for a market, newest first, with pagination.
func (s *OrderAuditStore) ListByMarket(ctx context.Context, marketSlug string, opts domain.ListOpts) ([]domain.OrderAudit, error) {
	query := `SELECT ` + auditSelectCols + ` FROM order_audit
		WHERE market_slug = $1 ORDER BY submitted_at DESC`
	args := []any{marketSlug}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order audit by market: %w", err)
	}
	defer rows.Close()

	audits, err := scanAuditRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order audit by market: %w", err)
	}
	return audits, nil
}

// ListBefore returns audit rows submitted before the cutoff, oldest first.
// The archiver uses it to page out rows bound for object storage.
func (s *OrderAuditStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OrderAudit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auditSelectCols+` FROM order_audit
		 WHERE submitted_at < $1 ORDER BY submitted_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order audit before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	audits, err := scanAuditRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order audit before cutoff: %w", err)
	}
	return audits, nil
}

// DeleteBefore removes audit rows submitted before the cutoff and reports
// how many were deleted.
func (s *OrderAuditStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM order_audit WHERE submitted_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete order audit before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.OrderAuditStore = (*OrderAuditStore)(nil)
