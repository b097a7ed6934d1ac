package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/apexfx/brokerd/internal/domain"
	"github.com/apexfx/brokerd/internal/engine"
)

// spotStrategy settles unleveraged trades by moving balances: buys debit the
// quote currency plus fee and credit the base currency, sells debit the base
// currency and credit quote minus fee.
type spotStrategy struct {
	quoteCurrency string
}

func newSpotStrategy(quoteCurrency string) *spotStrategy {
	return &spotStrategy{quoteCurrency: quoteCurrency}
}

// baseCurrency strips the quote suffix from the symbol (BTC from BTCUSDT).
func (s *spotStrategy) baseCurrency(symbol string) string {
	if strings.HasSuffix(symbol, s.quoteCurrency) {
		return symbol[:len(symbol)-len(s.quoteCurrency)]
	}
	return symbol
}

func (s *spotStrategy) Settle(ctx context.Context, tx pgx.Tx, order *domain.Order, executionPrice float64) (domain.Settlement, error) {
	notional := engine.Notional(order.AmountBase, executionPrice)
	fee := engine.Fee(notional)
	base := s.baseCurrency(order.Symbol)

	if order.Side == domain.OrderSideBuy {
		required := notional + fee

		sel, err := resolveBalance(ctx, tx, order.AccountID, s.quoteCurrency)
		if err != nil {
			return domain.Settlement{}, err
		}
		if sel.Amount < required {
			return domain.RejectInsufficient(&domain.InsufficientBalanceError{
				Currency:  sel.Currency,
				Required:  required,
				Available: sel.Amount,
			}), nil
		}

		if err := debitBalance(ctx, tx, order.AccountID, sel.Currency, required); err != nil {
			return domain.Settlement{}, err
		}
		if err := creditBalance(ctx, tx, order.AccountID, base, order.AmountBase); err != nil {
			return domain.Settlement{}, err
		}
	} else {
		sel, err := resolveBalance(ctx, tx, order.AccountID, base)
		if err != nil {
			return domain.Settlement{}, err
		}
		if sel.Amount < order.AmountBase {
			return domain.RejectInsufficient(&domain.InsufficientBalanceError{
				Currency:  sel.Currency,
				Required:  order.AmountBase,
				Available: sel.Amount,
			}), nil
		}

		if err := debitBalance(ctx, tx, order.AccountID, sel.Currency, order.AmountBase); err != nil {
			return domain.Settlement{}, err
		}

		// Proceeds land in whichever equivalent quote currency the account
		// already holds.
		quoteSel, err := resolveBalance(ctx, tx, order.AccountID, s.quoteCurrency)
		if err != nil {
			return domain.Settlement{}, err
		}
		if err := creditBalance(ctx, tx, order.AccountID, quoteSel.Currency, notional-fee); err != nil {
			return domain.Settlement{}, err
		}
	}

	if err := markOrderFilled(ctx, tx, order, executionPrice); err != nil {
		return domain.Settlement{}, err
	}

	return domain.Settlement{
		Message: fmt.Sprintf("order executed successfully at price %.8f with fee %.8f %s",
			executionPrice, fee, s.quoteCurrency),
	}, nil
}
