package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/apexfx/brokerd/internal/domain"
)

// MarginMetrics is an account's margin health snapshot.
type MarginMetrics struct {
	TotalBalance  float64 `json:"total_balance"`
	UsedMargin    float64 `json:"used_margin"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Equity        float64 `json:"equity"`
	FreeMargin    float64 `json:"free_margin"`
	MarginLevel   float64 `json:"margin_level"`
}

// MarginService computes margin metrics from open contracts and cached
// prices. Contracts whose symbol has no fresh price contribute margin but
// no unrealized PnL.
type MarginService struct {
	balances  domain.BalanceStore
	positions domain.PositionStore
	prices    domain.PriceCache
}

// NewMarginService creates a MarginService.
func NewMarginService(balances domain.BalanceStore, positions domain.PositionStore, prices domain.PriceCache) *MarginService {
	return &MarginService{balances: balances, positions: positions, prices: prices}
}

// CalculateMargin builds the metrics snapshot for one account.
func (ms *MarginService) CalculateMargin(ctx context.Context, accountID uuid.UUID) (*MarginMetrics, error) {
	balance, err := ms.balances.MarginBalance(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service: margin balance: %w", err)
	}

	contracts, err := ms.positions.ListOpenByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service: open contracts: %w", err)
	}

	metrics := &MarginMetrics{TotalBalance: balance}

	for _, c := range contracts {
		metrics.UsedMargin += c.MarginUsed

		price, err := ms.prices.GetPrice(ctx, c.Symbol)
		if err != nil {
			continue
		}
		switch c.Side {
		case domain.ContractSideLong:
			metrics.UnrealizedPnL += (price - c.EntryPrice) * c.LotSize
		case domain.ContractSideShort:
			metrics.UnrealizedPnL += (c.EntryPrice - price) * c.LotSize
		}
	}

	metrics.Equity = metrics.TotalBalance + metrics.UnrealizedPnL
	metrics.FreeMargin = metrics.Equity - metrics.UsedMargin
	if metrics.UsedMargin > 0 {
		metrics.MarginLevel = metrics.Equity / metrics.UsedMargin * 100
	}
	return metrics, nil
}
