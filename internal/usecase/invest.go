package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

func invalidAssetQuantity() error {
	return &PrecheckError{Err: domain.ErrInvalidQuantity, Message: "Please enter a quantity greater than 0."}
}

// ParseAssetQuantity reads a positive, possibly fractional, asset quantity
func ParseAssetQuantity(raw string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !qty.IsPositive() {
		return decimal.Zero, invalidAssetQuantity()
	}
	return qty, nil
}

// FindAsset picks an asset by id
func FindAsset(assets []domain.Asset, id int64) (domain.Asset, error) {
	for _, a := range assets {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Asset{}, fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
}

// InvestmentPlan is an investment that passed the local checks
type InvestmentPlan struct {
	Asset     domain.Asset
	AssetType string
	Quantity  decimal.Decimal
	Total     decimal.Decimal
}

// Confirmation is the question asked before the order is sent
func (p InvestmentPlan) Confirmation() string {
	return fmt.Sprintf("Buy %s %s for $%s?", p.Quantity.String(), p.Asset.Symbol, FormatMoney(p.Total))
}

// PlanInvestment checks an order against the cached balance at the listed price
func PlanInvestment(asset domain.Asset, assetType string, quantity, balance decimal.Decimal) (*InvestmentPlan, error) {
	if !quantity.IsPositive() {
		return nil, invalidAssetQuantity()
	}

	total := asset.Price.Mul(quantity)
	if total.GreaterThan(balance) {
		return nil, insufficientFunds(total, balance)
	}

	return &InvestmentPlan{Asset: asset, AssetType: assetType, Quantity: quantity, Total: total}, nil
}
