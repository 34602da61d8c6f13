package domain

import "github.com/shopspring/decimal"

// Business represents a student-owned simulated business
type Business struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"owner_id,omitempty"`
	OwnerUsername string          `json:"owner_username,omitempty"`
	Name          string          `json:"name"`
	Industry      string          `json:"industry"`
	LogoColor     string          `json:"logo_color"`
	Tagline       string          `json:"tagline,omitempty"`
	Description   string          `json:"description,omitempty"`
	Revenue       decimal.Decimal `json:"revenue"`
	Products      []Product       `json:"products,omitempty"`
}

// Initial returns the upper-cased first letter of the business name
func (b Business) Initial() string {
	return initial(b.Name)
}

// Product represents something a business sells
type Product struct {
	ID          int64           `json:"id"`
	BusinessID  int64           `json:"business_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ProductType constants
const (
	ProductTypeProduct = "product"
	ProductTypeService = "service"
)

// IsPhysical reports whether the product tracks stock
func (p Product) IsPhysical() bool {
	return p.Type == ProductTypeProduct
}

// OutOfStock reports whether a physical product has nothing left to sell
func (p Product) OutOfStock() bool {
	return p.IsPhysical() && p.Stock <= 0
}

// Industries offered when creating a business
var Industries = []string{
	"Technology", "Food & Beverage", "Fashion", "Healthcare",
	"Education", "Entertainment", "Real Estate", "Finance",
	"Retail", "Manufacturing", "Services", "Other",
}

// PresetColors offered as brand colors
var PresetColors = []string{
	"#4F46E5", "#7C3AED", "#EC4899", "#EF4444",
	"#F59E0B", "#10B981", "#3B82F6", "#6366F1",
	"#8B5CF6", "#14B8A6", "#06B6D4", "#84CC16",
}

// DefaultIndustry and DefaultLogoColor preselect the create-business form
const (
	DefaultIndustry  = "Technology"
	DefaultLogoColor = "#4F46E5"
)

// IsKnownIndustry reports whether industry is one of Industries
func IsKnownIndustry(industry string) bool {
	for _, i := range Industries {
		if i == industry {
			return true
		}
	}
	return false
}
