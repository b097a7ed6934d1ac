package engine

import (
	"fmt"

	"github.com/apexfx/brokerd/internal/domain"
)

// Triggered decides whether an order of the given type and side is executable
// at the current market price. A missing required price field is a distinct
// non-triggered reason, never an error.
func Triggered(typ domain.OrderType, side domain.OrderSide, limitPrice, stopPrice *float64, currentPrice float64) (bool, string) {
	switch typ {
	case domain.OrderTypeMarket:
		return true, "market order"

	case domain.OrderTypeLimit:
		if limitPrice == nil {
			return false, "limit price not set"
		}
		if side == domain.OrderSideBuy && currentPrice <= *limitPrice {
			return true, "buy limit triggered"
		}
		if side == domain.OrderSideSell && currentPrice >= *limitPrice {
			return true, "sell limit triggered"
		}
		return false, fmt.Sprintf("limit price not reached (current: %.8f, limit: %.8f)", currentPrice, *limitPrice)

	case domain.OrderTypeStop:
		if stopPrice == nil {
			return false, "stop price not set"
		}
		if side == domain.OrderSideBuy && currentPrice >= *stopPrice {
			return true, "buy stop triggered"
		}
		if side == domain.OrderSideSell && currentPrice <= *stopPrice {
			return true, "sell stop triggered"
		}
		return false, fmt.Sprintf("stop price not reached (current: %.8f, stop: %.8f)", currentPrice, *stopPrice)

	case domain.OrderTypeStopLimit:
		if stopPrice == nil || limitPrice == nil {
			return false, "stop price or limit price not set"
		}
		stopHit := (side == domain.OrderSideBuy && currentPrice >= *stopPrice) ||
			(side == domain.OrderSideSell && currentPrice <= *stopPrice)
		if !stopHit {
			return false, "stop not triggered yet"
		}
		if side == domain.OrderSideBuy && currentPrice <= *limitPrice {
			return true, "stop-limit buy triggered"
		}
		if side == domain.OrderSideSell && currentPrice >= *limitPrice {
			return true, "stop-limit sell triggered"
		}
		return false, "stop triggered but limit not met"

	default:
		return false, fmt.Sprintf("unknown order type: %s", typ)
	}
}
