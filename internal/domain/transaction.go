package domain

import "github.com/shopspring/decimal"

// Transaction is an immutable purchase record
type Transaction struct {
	ID             int64           `json:"id"`
	BuyerUsername  string          `json:"buyer_username,omitempty"`
	SellerUsername string          `json:"seller_username,omitempty"`
	ProductID      int64           `json:"product_id,omitempty"`
	ProductName    string          `json:"product_name"`
	BusinessID     int64           `json:"business_id,omitempty"`
	BusinessName   string          `json:"business_name,omitempty"`
	Quantity       int             `json:"quantity"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      Timestamp       `json:"created_at"`
}
