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

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order row in pending status.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, user_id, account_id, order_number, symbol, side,
			order_type, status, product_type, execution_strategy,
			amount_base, limit_price, stop_price, leverage,
			filled_amount, average_fill_price, pair_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.UserID, o.AccountID, o.OrderNumber, o.Symbol,
		string(o.Side), string(o.Type), string(o.Status),
		string(o.ProductType), string(o.ExecutionStrategy),
		o.AmountBase, o.LimitPrice, o.StopPrice, o.Leverage,
		o.FilledAmount, o.AverageFillPrice, o.PairID,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

const orderSelectCols = `id, user_id, account_id, order_number, symbol, side,
	order_type, status, product_type, execution_strategy,
	amount_base, limit_price, stop_price, leverage,
	filled_amount, average_fill_price, pair_id, created_at, updated_at`

func scanOrderFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Order, error) {
	var o domain.Order
	var side, orderType, status, productType, strategy string

	err := scanner.Scan(
		&o.ID, &o.UserID, &o.AccountID, &o.OrderNumber, &o.Symbol,
		&side, &orderType, &status, &productType, &strategy,
		&o.AmountBase, &o.LimitPrice, &o.StopPrice, &o.Leverage,
		&o.FilledAmount, &o.AverageFillPrice, &o.PairID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Side = domain.OrderSide(side)
	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	o.ProductType = domain.ProductType(productType)
	o.ExecutionStrategy = domain.ExecutionStrategy(strategy)
	return o, nil
}

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByID retrieves a single order by ID.
func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE id = $1`, id)

	o, err := scanOrderFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// ListByAccount returns an account's orders newest first with pagination.
func (s *OrderStore) ListByAccount(ctx context.Context, accountID uuid.UUID, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders
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
		return nil, fmt.Errorf("postgres: list orders for account %s: %w", accountID, err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders: %w", err)
	}
	return orders, nil
}

// MarkRejected moves a still-pending order to rejected. Orders already in a
// terminal state are left alone.
func (s *OrderStore) MarkRejected(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, reject_reason = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(domain.OrderStatusRejected), reason, id, string(domain.OrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("postgres: mark order %s rejected: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
