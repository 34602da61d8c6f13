package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

// PrecheckError is a validation failure caught before any request is sent.
// Message is shown to the user as is.
type PrecheckError struct {
	Err     error
	Message string
}

func (e *PrecheckError) Error() string {
	return e.Message
}

func (e *PrecheckError) Unwrap() error {
	return e.Err
}

func insufficientFunds(total, balance decimal.Decimal) error {
	return &PrecheckError{
		Err: domain.ErrInsufficientFunds,
		Message: fmt.Sprintf("Insufficient funds! You need $%s but only have $%s.",
			FormatMoney(total), FormatMoney(balance)),
	}
}

// ParseQuantity reads a whole purchase quantity of at least one
func ParseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 1 {
		return 0, &PrecheckError{Err: domain.ErrInvalidQuantity, Message: "Please enter a whole quantity of at least 1."}
	}
	return qty, nil
}

// FindProduct picks a product by id
func FindProduct(products []domain.Product, id int64) (domain.Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
}

// PurchasePlan is a purchase that passed the local checks
type PurchasePlan struct {
	Product  domain.Product
	Quantity int
	Total    decimal.Decimal
}

// Confirmation is the question asked before the purchase is sent
func (p PurchasePlan) Confirmation() string {
	return fmt.Sprintf("Purchase %d %s(s) for $%s?", p.Quantity, p.Product.Name, FormatMoney(p.Total))
}

// PlanPurchase checks a purchase against the cached balance and the listed stock.
// The backend re-checks both; these checks only spare a doomed request.
func PlanPurchase(product domain.Product, quantity int, balance decimal.Decimal) (*PurchasePlan, error) {
	if quantity < 1 {
		return nil, &PrecheckError{Err: domain.ErrInvalidQuantity, Message: "Please enter a whole quantity of at least 1."}
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	if total.GreaterThan(balance) {
		return nil, insufficientFunds(total, balance)
	}

	if product.IsPhysical() && product.Stock < quantity {
		return nil, &PrecheckError{
			Err:     domain.ErrInsufficientStock,
			Message: fmt.Sprintf("Not enough stock! Only %d available.", product.Stock),
		}
	}

	return &PurchasePlan{Product: product, Quantity: quantity, Total: total}, nil
}

// PurchaseButton is the label for a product's buy button
func PurchaseButton(product domain.Product, balance decimal.Decimal) (label string, disabled bool) {
	switch {
	case product.OutOfStock():
		return "Out of Stock", true
	case product.Price.GreaterThan(balance):
		return "Insufficient Funds", true
	default:
		return "Purchase Now", false
	}
}
