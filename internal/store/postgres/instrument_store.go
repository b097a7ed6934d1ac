package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexfx/brokerd/internal/domain"
)

// InstrumentStore implements domain.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *pgxpool.Pool
}

// NewInstrumentStore creates a new InstrumentStore backed by the given pool.
func NewInstrumentStore(pool *pgxpool.Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// GetBySymbol retrieves one instrument by symbol.
func (s *InstrumentStore) GetBySymbol(ctx context.Context, symbol string) (domain.Instrument, error) {
	var in domain.Instrument
	var instrumentType string
	err := s.pool.QueryRow(ctx,
		`SELECT symbol, quote_currency, instrument_type, active
		 FROM instruments WHERE symbol = $1`, symbol,
	).Scan(&in.Symbol, &in.QuoteCurrency, &instrumentType, &in.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Instrument{}, domain.ErrNotFound
		}
		return domain.Instrument{}, fmt.Errorf("postgres: get instrument %s: %w", symbol, err)
	}
	in.Type = domain.InstrumentType(instrumentType)
	return in, nil
}

// ListActive returns all tradeable instruments.
func (s *InstrumentStore) ListActive(ctx context.Context) ([]domain.Instrument, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, quote_currency, instrument_type, active
		 FROM instruments WHERE active = TRUE ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active instruments: %w", err)
	}
	defer rows.Close()

	var instruments []domain.Instrument
	for rows.Next() {
		var in domain.Instrument
		var instrumentType string
		if err := rows.Scan(&in.Symbol, &in.QuoteCurrency, &instrumentType, &in.Active); err != nil {
			return nil, fmt.Errorf("postgres: scan instrument: %w", err)
		}
		in.Type = domain.InstrumentType(instrumentType)
		instruments = append(instruments, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan instruments: %w", err)
	}
	return instruments, nil
}
