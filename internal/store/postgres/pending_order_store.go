package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexfx/brokerd/internal/domain"
)

// PendingOrderStore implements domain.PendingOrderStore using PostgreSQL.
type PendingOrderStore struct {
	pool *pgxpool.Pool
}

// NewPendingOrderStore creates a new PendingOrderStore backed by the given pool.
func NewPendingOrderStore(pool *pgxpool.Pool) *PendingOrderStore {
	return &PendingOrderStore{pool: pool}
}

// Create inserts a new resting order.
func (s *PendingOrderStore) Create(ctx context.Context, po domain.PendingOrder) error {
	const query = `
		INSERT INTO pending_orders (
			id, user_id, account_id, order_number, symbol, order_type,
			side, quantity, limit_price, stop_price, leverage,
			product_type, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		po.ID, po.UserID, po.AccountID, po.OrderNumber, po.Symbol,
		string(po.Type), string(po.Side), po.Quantity,
		po.LimitPrice, po.StopPrice, po.Leverage,
		string(po.ProductType), string(po.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: create pending order %s: %w", po.ID, err)
	}
	return nil
}

const pendingOrderSelectCols = `id, user_id, account_id, order_number, symbol,
	order_type, side, quantity, limit_price, stop_price, leverage,
	product_type, status, executed_at, executed_price, failure_reason,
	created_at, updated_at`

func scanPendingOrderFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.PendingOrder, error) {
	var po domain.PendingOrder
	var orderType, side, productType, status string

	err := scanner.Scan(
		&po.ID, &po.UserID, &po.AccountID, &po.OrderNumber, &po.Symbol,
		&orderType, &side, &po.Quantity, &po.LimitPrice, &po.StopPrice,
		&po.Leverage, &productType, &status,
		&po.ExecutedAt, &po.ExecutedPrice, &po.FailureReason,
		&po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return domain.PendingOrder{}, err
	}

	po.Type = domain.OrderType(orderType)
	po.Side = domain.OrderSide(side)
	po.ProductType = domain.ProductType(productType)
	po.Status = domain.PendingOrderStatus(status)
	return po, nil
}

func scanPendingOrderRows(rows pgx.Rows) ([]domain.PendingOrder, error) {
	var orders []domain.PendingOrder
	for rows.Next() {
		po, err := scanPendingOrderFromRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// GetByID retrieves a single pending order by ID.
func (s *PendingOrderStore) GetByID(ctx context.Context, id uuid.UUID) (domain.PendingOrder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pendingOrderSelectCols+` FROM pending_orders WHERE id = $1`, id)

	po, err := scanPendingOrderFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PendingOrder{}, domain.ErrNotFound
		}
		return domain.PendingOrder{}, fmt.Errorf("postgres: get pending order %s: %w", id, err)
	}
	return po, nil
}

// ListPendingBySymbol returns all still-resting orders for one symbol, oldest
// first so earlier orders trigger first at the same price.
func (s *PendingOrderStore) ListPendingBySymbol(ctx context.Context, symbol string) ([]domain.PendingOrder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pendingOrderSelectCols+` FROM pending_orders
		 WHERE symbol = $1 AND status = $2
		 ORDER BY created_at ASC`,
		symbol, string(domain.PendingOrderStatusPending))
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending orders for %s: %w", symbol, err)
	}
	defer rows.Close()

	orders, err := scanPendingOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pending orders: %w", err)
	}
	return orders, nil
}

// ListByAccount returns an account's pending orders newest first with pagination.
func (s *PendingOrderStore) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.PendingOrder, error) {
	query := `SELECT ` + pendingOrderSelectCols + ` FROM pending_orders
		WHERE account_id = $1 ORDER BY created_at DESC`
	args := []any{accountID}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending orders for account %s: %w", accountID, err)
	}
	defer rows.Close()

	orders, err := scanPendingOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pending orders: %w", err)
	}
	return orders, nil
}

// MarkExecuted moves a resting order to executed, recording the fill price.
// Only still-pending rows transition, so two workers racing on the same order
// cannot both claim it.
func (s *PendingOrderStore) MarkExecuted(ctx context.Context, id uuid.UUID, executedPrice float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_orders
		 SET status = $1, executed_at = NOW(), executed_price = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(domain.PendingOrderStatusExecuted), executedPrice,
		id, string(domain.PendingOrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("postgres: mark pending order %s executed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed moves a resting order to failed with the given reason.
func (s *PendingOrderStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_orders
		 SET status = $1, failure_reason = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(domain.PendingOrderStatusFailed), reason,
		id, string(domain.PendingOrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("postgres: mark pending order %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cancel moves a resting order to cancelled.
func (s *PendingOrderStore) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_orders SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		string(domain.PendingOrderStatusCancelled),
		id, string(domain.PendingOrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("postgres: cancel pending order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
