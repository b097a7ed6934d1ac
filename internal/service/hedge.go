package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/engine"
)

// hedgeStrategy settles leveraged orders internally by opening a long and a
// short contract of identical size and entry price in the same statement.
// The pair nets to zero market exposure on the book while the client pays
// margin and fees for both legs.
type hedgeStrategy struct {
	accountCurrency string
	instrumentType  domain.InstrumentType
}

func newHedgeStrategy(accountCurrency string, instrumentType domain.InstrumentType) *hedgeStrategy {
	return &hedgeStrategy{
		accountCurrency: accountCurrency,
		instrumentType:  instrumentType,
	}
}

func (h *hedgeStrategy) Settle(ctx context.Context, tx pgx.Tx, order *domain.Order, executionPrice float64) (domain.Settlement, error) {
	maxLeverage, err := maxLeverageFor(ctx, tx, order.Symbol, h.instrumentType)
	if err != nil {
		return domain.Settlement{}, err
	}

	plan := engine.HedgeMargin(order.AmountBase, executionPrice, order.Leverage)
	if plan.Leverage > maxLeverage {
		return domain.Reject(fmt.Sprintf("leverage %dx exceeds instrument maximum of %dx",
			plan.Leverage, maxLeverage)), nil
	}

	sel, err := resolveBalance(ctx, tx, order.AccountID, h.accountCurrency)
	if err != nil {
		return domain.Settlement{}, err
	}
	if sel.Amount < plan.TotalMarginRequired {
		return domain.RejectInsufficient(&domain.InsufficientBalanceError{
			Currency:  sel.Currency,
			Required:  plan.TotalMarginRequired,
			Available: sel.Amount,
		}), nil
	}

	if err := debitBalance(ctx, tx, order.AccountID, sel.Currency, plan.TotalMarginRequired); err != nil {
		return domain.Settlement{}, err
	}

	pairID := uuid.New()
	longID := uuid.New()
	shortID := uuid.New()
	longNumber := NewContractNumber()
	shortNumber := NewContractNumber()

	// Both legs in one statement; they share pair_id, size, and entry price.
	_, err = tx.Exec(ctx,
		`INSERT INTO contracts (id, user_id, account_id, symbol, contract_number, side, status,
		                        lot_size, entry_price, margin_used, leverage, commission, liquidation_price, pair_id,
		                        created_at, updated_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW()),
		   ($15, $2, $3, $4, $16, $17, $7, $8, $9, $10, $11, $12, $18, $14, NOW(), NOW())`,
		longID, order.UserID, order.AccountID, order.Symbol, longNumber,
		string(domain.ContractSideLong), string(domain.ContractStatusOpen),
		order.AmountBase, executionPrice,
		plan.MarginPerPosition-plan.Fee/2.0, plan.Leverage, plan.Fee/2.0,
		plan.LongLiquidation, pairID,
		shortID, shortNumber, string(domain.ContractSideShort), plan.ShortLiquidation,
	)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("service: create hedge pair: %w", err)
	}

	if err := markOrderFilled(ctx, tx, order, executionPrice); err != nil {
		return domain.Settlement{}, err
	}

	long, err := fetchContract(ctx, tx, longID)
	if err != nil {
		return domain.Settlement{}, err
	}

	return domain.Settlement{
		Contract: &long,
		Message: fmt.Sprintf("hedged position opened: LONG %s and SHORT %s at price %.8f (pair_id: %s)",
			longNumber, shortNumber, executionPrice, pairID),
	}, nil
}

func fetchContract(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Contract, error) {
	var c domain.Contract
	var side, status string
	err := tx.QueryRow(ctx,
		`SELECT id, user_id, account_id, symbol, contract_number, side, status,
		        lot_size, entry_price, margin_used, leverage, liquidation_price,
		        take_profit, stop_loss, close_price, pnl, swap, commission, pair_id,
		        created_at, closed_at, updated_at
		 FROM contracts WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.UserID, &c.AccountID, &c.Symbol, &c.ContractNumber, &side, &status,
		&c.LotSize, &c.EntryPrice, &c.MarginUsed, &c.Leverage, &c.LiquidationPrice,
		&c.TakeProfit, &c.StopLoss, &c.ClosePrice, &c.PnL, &c.Swap, &c.Commission, &c.PairID,
		&c.CreatedAt, &c.ClosedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Contract{}, fmt.Errorf("service: fetch contract %s: %w", id, err)
	}
	c.Side = domain.ContractSide(side)
	c.Status = domain.ContractStatus(status)
	return c, nil
}
