package engine

import "github.com/apexfx/brokerd/internal/domain"

// EquivalentCurrency maps a currency to its 1:1 settlement equivalent.
// USD and USDT are interchangeable for trading purposes; every other
// currency maps to itself.
func EquivalentCurrency(currency string) string {
	switch currency {
	case "USDT":
		return "USD"
	case "USD":
		return "USDT"
	}
	return currency
}

// SelectBalance picks which of two equivalent balances to settle against.
// The preferred currency wins whenever it holds anything; otherwise the
// larger balance wins, with ties going to the preferred currency. The two
// amounts are never combined.
func SelectBalance(preferred string, preferredAmt float64, equivalent string, equivalentAmt float64) domain.BalanceSelection {
	if preferredAmt > 0 {
		return domain.BalanceSelection{Currency: preferred, Amount: preferredAmt}
	}
	if equivalentAmt > preferredAmt {
		return domain.BalanceSelection{Currency: equivalent, Amount: equivalentAmt}
	}
	return domain.BalanceSelection{Currency: preferred, Amount: preferredAmt}
}
