package domain

import "github.com/shopspring/decimal"

// Asset is a tradable instrument with a server-priced quote
type Asset struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// AssetType constants as sent to the investments endpoint
const (
	AssetTypeStock  = "stock"
	AssetTypeCrypto = "crypto"
)

// Market tabs on the trading page
const (
	MarketStocks = "stocks"
	MarketCrypto = "crypto"
)

// AssetTypeForMarket maps a trading tab to the asset type it lists
func AssetTypeForMarket(market string) string {
	if market == MarketCrypto {
		return AssetTypeCrypto
	}
	return AssetTypeStock
}

// MarketUpdate is the payload of a market_update push event
type MarketUpdate struct {
	Stocks []Asset `json:"stocks"`
	Crypto []Asset `json:"crypto"`
}
