package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/apexfx/brokerd/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const contractSelectCols = `id, user_id, account_id, symbol, contract_number,
	side, status, lot_size, entry_price, margin_used, leverage,
	liquidation_price, take_profit, stop_loss, close_price,
	pnl, swap, commission, pair_id, created_at, closed_at, updated_at`

func scanContractFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Contract, error) {
	var c domain.Contract
	var side, status string

	err := scanner.Scan(
		&c.ID, &c.UserID, &c.AccountID, &c.Symbol, &c.ContractNumber,
		&side, &status, &c.LotSize, &c.EntryPrice, &c.MarginUsed,
		&c.Leverage, &c.LiquidationPrice, &c.TakeProfit, &c.StopLoss,
		&c.ClosePrice, &c.PnL, &c.Swap, &c.Commission, &c.PairID,
		&c.CreatedAt, &c.ClosedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Contract{}, err
	}

	c.Side = domain.ContractSide(side)
	c.Status = domain.ContractStatus(status)
	return c, nil
}

func scanContractRows(rows pgx.Rows) ([]domain.Contract, error) {
	var contracts []domain.Contract
	for rows.Next() {
		c, err := scanContractFromRow(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// GetByID retrieves a single contract by ID.
func (s *PositionStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Contract, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contractSelectCols+` FROM contracts WHERE id = $1`, id)

	c, err := scanContractFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contract{}, domain.ErrNotFound
		}
		return domain.Contract{}, fmt.Errorf("postgres: get contract %s: %w", id, err)
	}
	return c, nil
}

// ListOpenByAccount returns an account's open contracts, newest first.
func (s *PositionStore) ListOpenByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Contract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contractSelectCols+` FROM contracts
		 WHERE account_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		accountID, string(domain.ContractStatusOpen))
	if err != nil {
		return nil, fmt.Errorf("postgres: list open contracts for account %s: %w", accountID, err)
	}
	defer rows.Close()

	contracts, err := scanContractRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan contracts: %w", err)
	}
	return contracts, nil
}

// ListOpenBySymbol returns all open contracts for one symbol.
func (s *PositionStore) ListOpenBySymbol(ctx context.Context, symbol string) ([]domain.Contract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contractSelectCols+` FROM contracts
		 WHERE symbol = $1 AND status = $2
		 ORDER BY created_at ASC`,
		symbol, string(domain.ContractStatusOpen))
	if err != nil {
		return nil, fmt.Errorf("postgres: list open contracts for %s: %w", symbol, err)
	}
	defer rows.Close()

	contracts, err := scanContractRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan contracts: %w", err)
	}
	return contracts, nil
}

// NetExposure is sum(long notional) - sum(short notional) over open contracts
// for one symbol, at entry price. Hedge pairs net to zero by construction, so
// only externally-routed imbalance shows up here.
func (s *PositionStore) NetExposure(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var exposure decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(
			CASE WHEN side = $1 THEN lot_size * entry_price
			     ELSE -(lot_size * entry_price) END
		 )::TEXT, '0')
		 FROM contracts WHERE symbol = $2 AND status = $3`,
		string(domain.ContractSideLong), symbol, string(domain.ContractStatusOpen),
	).Scan(&exposure)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: net exposure for %s: %w", symbol, err)
	}
	return exposure, nil
}

// TotalNetExposure is the sum of per-symbol net exposures across all symbols.
func (s *PositionStore) TotalNetExposure(ctx context.Context) (decimal.Decimal, error) {
	var exposure decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(
			CASE WHEN side = $1 THEN lot_size * entry_price
			     ELSE -(lot_size * entry_price) END
		 )::TEXT, '0')
		 FROM contracts WHERE status = $2`,
		string(domain.ContractSideLong), string(domain.ContractStatusOpen),
	).Scan(&exposure)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: total net exposure: %w", err)
	}
	return exposure, nil
}
