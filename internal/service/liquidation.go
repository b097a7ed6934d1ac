package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexfx/brokerd/internal/domain"
)

// LiquidationMonitor closes open contracts whose liquidation price the
// market has crossed. Each contract closes in its own transaction so one
// bad row never blocks the rest of the sweep.
type LiquidationMonitor struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLiquidationMonitor creates a LiquidationMonitor.
func NewLiquidationMonitor(pool *pgxpool.Pool, logger *slog.Logger) *LiquidationMonitor {
	return &LiquidationMonitor{
		pool:   pool,
		logger: logger.With(slog.String("component", "liquidation")),
	}
}

type liquidationCandidate struct {
	ID               uuid.UUID
	AccountID        uuid.UUID
	ContractNumber   string
	Side             domain.ContractSide
	LotSize          float64
	EntryPrice       float64
	MarginUsed       float64
	LiquidationPrice float64
}

// CheckSymbol scans open contracts for one symbol against the given price
// and liquidates every crossed position. It returns the contracts it closed.
func (m *LiquidationMonitor) CheckSymbol(ctx context.Context, symbol string, currentPrice float64) ([]domain.Contract, error) {
	rows, err := m.pool.Query(ctx,
		`SELECT id, account_id, contract_number, side, lot_size, entry_price, margin_used, liquidation_price
		 FROM contracts
		 WHERE symbol = $1 AND status = $2`,
		symbol, string(domain.ContractStatusOpen))
	if err != nil {
		return nil, fmt.Errorf("service: fetch open contracts for %s: %w", symbol, err)
	}
	defer rows.Close()

	var candidates []liquidationCandidate
	for rows.Next() {
		var c liquidationCandidate
		var side string
		if err := rows.Scan(&c.ID, &c.AccountID, &c.ContractNumber, &side,
			&c.LotSize, &c.EntryPrice, &c.MarginUsed, &c.LiquidationPrice); err != nil {
			return nil, fmt.Errorf("service: scan contract: %w", err)
		}
		c.Side = domain.ContractSide(side)

		crossed := (c.Side == domain.ContractSideLong && currentPrice <= c.LiquidationPrice) ||
			(c.Side == domain.ContractSideShort && currentPrice >= c.LiquidationPrice)
		if crossed {
			candidates = append(candidates, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("service: scan contracts: %w", err)
	}

	var closed []domain.Contract
	for _, c := range candidates {
		contract, err := m.liquidate(ctx, c, currentPrice)
		if err != nil {
			m.logger.Error("liquidation failed",
				slog.String("contract_number", c.ContractNumber),
				slog.String("error", err.Error()))
			continue
		}
		m.logger.Warn("position liquidated",
			slog.String("contract_number", c.ContractNumber),
			slog.String("symbol", symbol),
			slog.Float64("close_price", currentPrice),
			slog.Float64("entry_price", c.EntryPrice))
		closed = append(closed, contract)
	}
	return closed, nil
}

// liquidate closes one contract at the current price, returning remaining
// equity (margin plus PnL, floored at zero) to the account balance, all in
// one transaction.
func (m *LiquidationMonitor) liquidate(ctx context.Context, c liquidationCandidate, closePrice float64) (domain.Contract, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Contract{}, fmt.Errorf("service: begin liquidation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var pnl float64
	if c.Side == domain.ContractSideLong {
		pnl = (closePrice - c.EntryPrice) * c.LotSize
	} else {
		pnl = (c.EntryPrice - closePrice) * c.LotSize
	}

	remaining := c.MarginUsed + pnl
	if remaining < 0 {
		remaining = 0
	}

	var accountCurrency string
	if err := tx.QueryRow(ctx,
		`SELECT currency FROM accounts WHERE id = $1`, c.AccountID,
	).Scan(&accountCurrency); err != nil {
		return domain.Contract{}, fmt.Errorf("service: account currency: %w", err)
	}

	if remaining > 0 {
		if err := creditBalance(ctx, tx, c.AccountID, accountCurrency, remaining); err != nil {
			return domain.Contract{}, err
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE contracts
		 SET status = $1, close_price = $2, pnl = $3, closed_at = NOW(), updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		string(domain.ContractStatusLiquidated), closePrice, pnl,
		c.ID, string(domain.ContractStatusOpen),
	)
	if err != nil {
		return domain.Contract{}, fmt.Errorf("service: close contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already closed by a competing sweep.
		return domain.Contract{}, domain.ErrNotFound
	}

	contract, err := fetchContract(ctx, tx, c.ID)
	if err != nil {
		return domain.Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Contract{}, fmt.Errorf("service: commit liquidation tx: %w", err)
	}
	return contract, nil
}
