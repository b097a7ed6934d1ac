// Package service implements order execution: the orchestrator, the
// settlement strategies behind it, routing decisions, liquidation, and
// account margin metrics.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/engine"
)

// SettlementStrategy settles one order inside the orchestrator's transaction.
// A returned Settlement with a Rejection is a soft failure: the orchestrator
// rolls back and the order row stays pending. A returned error is a hard
// failure and also rolls back.
type SettlementStrategy interface {
	Settle(ctx context.Context, tx pgx.Tx, order *domain.Order, executionPrice float64) (domain.Settlement, error)
}

// NewOrderNumber generates a human-visible order number.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

// NewContractNumber generates a human-visible contract number.
func NewContractNumber() string {
	return "CT-" + ulid.Make().String()
}

// checkViolation is the Postgres error code for a CHECK constraint failure,
// raised when a debit would push a balance negative.
const checkViolation = "23514"

// lockNotAvailable is raised by FOR UPDATE NOWAIT when another transaction
// holds the row.
const lockNotAvailable = "55P03"

// resolveBalance reads the preferred currency's balance and, only when it is
// empty and an equivalent exists (USD/USDT), the equivalent's too. Each read
// locks its row. Selection follows engine.SelectBalance: one currency is
// chosen, amounts are never combined. Missing rows count as zero.
func resolveBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, preferred string) (domain.BalanceSelection, error) {
	equivalent := engine.EquivalentCurrency(preferred)

	preferredAmt, err := lockedBalance(ctx, tx, accountID, preferred)
	if err != nil {
		return domain.BalanceSelection{}, err
	}

	// A funded preferred balance always wins; don't lock the equivalent row.
	if equivalent == preferred || preferredAmt > 0 {
		return domain.BalanceSelection{Currency: preferred, Amount: preferredAmt}, nil
	}

	equivalentAmt, err := lockedBalance(ctx, tx, accountID, equivalent)
	if err != nil {
		return domain.BalanceSelection{}, err
	}

	return engine.SelectBalance(preferred, preferredAmt, equivalent, equivalentAmt), nil
}

func lockedBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) (float64, error) {
	var amount float64
	err := tx.QueryRow(ctx,
		`SELECT amount FROM balances
		 WHERE account_id = $1 AND currency = $2
		 FOR UPDATE`,
		accountID, currency,
	).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("service: read %s balance: %w", currency, err)
	}
	return amount, nil
}

// debitBalance subtracts amount from an existing balance row. A CHECK
// violation from a concurrent drain surfaces as a typed insufficiency.
func debitBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount float64) error {
	_, err := tx.Exec(ctx,
		`UPDATE balances SET amount = amount - $1, updated_at = NOW()
		 WHERE account_id = $2 AND currency = $3`,
		amount, accountID, currency,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
			return &domain.InsufficientBalanceError{Currency: currency, Required: amount}
		}
		return fmt.Errorf("service: debit %s: %w", currency, err)
	}
	return nil
}

// creditBalance adds amount to a balance row, creating it on first credit.
func creditBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount float64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO balances (id, account_id, currency, amount, created_at, updated_at)
		 VALUES (gen_random_uuid(), $1, $2, $3, NOW(), NOW())
		 ON CONFLICT (account_id, currency)
		 DO UPDATE SET amount = balances.amount + $3, updated_at = NOW()`,
		accountID, currency, amount,
	)
	if err != nil {
		return fmt.Errorf("service: credit %s: %w", currency, err)
	}
	return nil
}

// markOrderFilled sets status, filled amount, and average fill price in one
// statement and mirrors the change onto the in-memory order.
func markOrderFilled(ctx context.Context, tx pgx.Tx, order *domain.Order, executionPrice float64) error {
	_, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, filled_amount = $2, average_fill_price = $3, updated_at = NOW()
		 WHERE id = $4`,
		string(domain.OrderStatusFilled), order.AmountBase, executionPrice, order.ID,
	)
	if err != nil {
		return fmt.Errorf("service: mark order filled: %w", err)
	}

	order.Status = domain.OrderStatusFilled
	order.FilledAmount = order.AmountBase
	avg := executionPrice
	order.AverageFillPrice = &avg
	return nil
}

// maxLeverageFor reads the per-symbol cap for forex instruments and falls
// back to class defaults for everything else.
func maxLeverageFor(ctx context.Context, tx pgx.Tx, symbol string, instrumentType domain.InstrumentType) (int, error) {
	if instrumentType == domain.InstrumentTypeForex {
		var maxLeverage int
		err := tx.QueryRow(ctx,
			`SELECT max_leverage FROM forex_configurations WHERE symbol = $1`,
			symbol,
		).Scan(&maxLeverage)
		if err != nil {
			return 0, fmt.Errorf("service: forex max leverage for %s: %w", symbol, err)
		}
		return maxLeverage, nil
	}
	if instrumentType == domain.InstrumentTypeCommodity {
		return engine.DefaultMaxLeverageCommodity, nil
	}
	return engine.DefaultMaxLeverageCrypto, nil
}
