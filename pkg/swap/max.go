package swap

import "github.com/shopspring/decimal"

// BalanceMap is the available balance per token symbol for the connected wallet.
type BalanceMap map[string]decimal.Decimal

// ResolveMax returns the exact available balance of the selected token.
// It reports false when no token is selected or the wallet has no entry for it.
func ResolveMax(selection Selection, balances BalanceMap) (decimal.Decimal, bool) {
	if !selection.HasToken() {
		return decimal.Zero, false
	}
	balance, ok := balances[selection.Token]
	if !ok {
		return decimal.Zero, false
	}
	return balance, true
}
