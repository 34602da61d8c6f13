package usecase

import (
	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

// Portfolio totals a user's holdings at current prices
type Portfolio struct {
	Value    decimal.Decimal
	Invested decimal.Decimal
	GainLoss decimal.Decimal
}

// Gaining reports whether the portfolio is at or above its cost
func (p Portfolio) Gaining() bool {
	return !p.GainLoss.IsNegative()
}

// SummarizePortfolio adds up value, cost basis and unrealized gain/loss
func SummarizePortfolio(investments []domain.Investment) Portfolio {
	p := Portfolio{Value: decimal.Zero, Invested: decimal.Zero}
	for _, inv := range investments {
		p.Value = p.Value.Add(inv.Value())
		p.Invested = p.Invested.Add(inv.CostBasis())
	}
	p.GainLoss = p.Value.Sub(p.Invested)
	return p
}

// TotalRevenue sums the revenue of businesses
func TotalRevenue(businesses []domain.Business) decimal.Decimal {
	total := decimal.Zero
	for _, b := range businesses {
		total = total.Add(b.Revenue)
	}
	return total
}

// RecentTransactions keeps the first n transactions, which arrive newest first
func RecentTransactions(txs []domain.Transaction, n int) []domain.Transaction {
	if len(txs) > n {
		return txs[:n]
	}
	return txs
}
