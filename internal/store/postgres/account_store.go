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

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore backed by the given pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// GetByID retrieves one funding account by ID.
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var a domain.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, currency, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.Currency, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %s: %w", id, err)
	}
	return a, nil
}
