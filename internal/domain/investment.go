package domain

import "github.com/shopspring/decimal"

// Investment is a holding of one stock or crypto asset
type Investment struct {
	ID            int64           `json:"id"`
	AssetType     string          `json:"asset_type"`
	AssetID       int64           `json:"asset_id,omitempty"`
	AssetSymbol   string          `json:"asset_symbol"`
	AssetName     string          `json:"asset_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
}

// Value is the holding priced at the server-supplied current price
func (i Investment) Value() decimal.Decimal {
	return i.Quantity.Mul(i.CurrentPrice)
}

// CostBasis is what the holding cost at purchase
func (i Investment) CostBasis() decimal.Decimal {
	return i.Quantity.Mul(i.PurchasePrice)
}

// GainLoss is the unrealized profit (positive) or loss (negative)
func (i Investment) GainLoss() decimal.Decimal {
	return i.Value().Sub(i.CostBasis())
}

// GainLossPercent is GainLoss relative to the cost basis; zero when nothing was paid
func (i Investment) GainLossPercent() decimal.Decimal {
	basis := i.CostBasis()
	if basis.IsZero() {
		return decimal.Zero
	}
	return i.GainLoss().Div(basis).Mul(decimal.NewFromInt(100))
}
