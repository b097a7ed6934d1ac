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

// BalanceStore implements domain.BalanceStore using PostgreSQL. It is a
// read-only surface; balance mutations happen inside settlement transactions.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

const balanceSelectCols = `id, account_id, currency, amount, created_at, updated_at`

// Get retrieves a single balance row by account and currency.
func (s *BalanceStore) Get(ctx context.Context, accountID uuid.UUID, currency string) (domain.Balance, error) {
	var b domain.Balance
	err := s.pool.QueryRow(ctx,
		`SELECT `+balanceSelectCols+` FROM balances
		 WHERE account_id = $1 AND currency = $2`,
		accountID, currency,
	).Scan(&b.ID, &b.AccountID, &b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Balance{}, domain.ErrNotFound
		}
		return domain.Balance{}, fmt.Errorf("postgres: get balance %s/%s: %w", accountID, currency, err)
	}
	return b, nil
}

// ListByAccount returns all balance rows for an account.
func (s *BalanceStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+balanceSelectCols+` FROM balances
		 WHERE account_id = $1 ORDER BY currency ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan balances: %w", err)
	}
	return balances, nil
}

// MarginBalance sums the USD and USDT rows for reporting. Settlement never
// sums equivalent currencies; this aggregate exists only for margin metrics.
func (s *BalanceStore) MarginBalance(ctx context.Context, accountID uuid.UUID) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM balances
		 WHERE account_id = $1 AND currency IN ('USD', 'USDT')`,
		accountID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: margin balance for account %s: %w", accountID, err)
	}
	return total, nil
}
