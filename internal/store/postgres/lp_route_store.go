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

// LPRouteStore implements domain.LPRouteStore using PostgreSQL. Route rows
// are written inside the execution transaction; this store is the read side.
type LPRouteStore struct {
	pool *pgxpool.Pool
}

// NewLPRouteStore creates a new LPRouteStore backed by the given pool.
func NewLPRouteStore(pool *pgxpool.Pool) *LPRouteStore {
	return &LPRouteStore{pool: pool}
}

const lpRouteSelectCols = `id, order_id, provider, lp_order_id, fill_price,
	fill_quantity, fee, status, routed_at, filled_at, created_at`

func scanLPRouteFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.LPRoute, error) {
	var r domain.LPRoute
	err := scanner.Scan(
		&r.ID, &r.OrderID, &r.Provider, &r.LPOrderID, &r.FillPrice,
		&r.FillQuantity, &r.Fee, &r.Status, &r.RoutedAt, &r.FilledAt,
		&r.CreatedAt,
	)
	if err != nil {
		return domain.LPRoute{}, err
	}
	return r, nil
}

// GetByOrderID retrieves the route record for an order.
func (s *LPRouteStore) GetByOrderID(ctx context.Context, orderID uuid.UUID) (domain.LPRoute, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+lpRouteSelectCols+` FROM lp_routes WHERE order_id = $1`, orderID)

	r, err := scanLPRouteFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LPRoute{}, domain.ErrNotFound
		}
		return domain.LPRoute{}, fmt.Errorf("postgres: get lp route for order %s: %w", orderID, err)
	}
	return r, nil
}

// ListRecent returns the most recent route records.
func (s *LPRouteStore) ListRecent(ctx context.Context, limit int) ([]domain.LPRoute, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+lpRouteSelectCols+` FROM lp_routes
		 ORDER BY routed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent lp routes: %w", err)
	}
	defer rows.Close()

	var routes []domain.LPRoute
	for rows.Next() {
		r, err := scanLPRouteFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan lp route: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan lp routes: %w", err)
	}
	return routes, nil
}
