package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexfx/brokerd/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Insert appends one entry to the audit trail.
func (s *AuditStore) Insert(ctx context.Context, e domain.AuditEntry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, order_id, order_number, outcome, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.OrderID, e.OrderNumber, e.Outcome, e.Message, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit entry for order %s: %w", e.OrderID, err)
	}
	return nil
}

// ListSince returns audit entries created at or after the given time, oldest
// first, capped at limit.
func (s *AuditStore) ListSince(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, order_number, outcome, message, created_at
		 FROM audit_log WHERE created_at >= $1
		 ORDER BY created_at ASC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.OrderNumber, &e.Outcome, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan audit entries: %w", err)
	}
	return entries, nil
}
