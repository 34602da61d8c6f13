package dto

// LoginForm is the body of POST /login
type LoginForm struct {
	Username string `form:"username" validate:"notblank,max=50"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm is the body of POST /register
type RegisterForm struct {
	Username string `form:"username" validate:"notblank,max=50"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
	Role     string `form:"role" validate:"required,oneof=student teacher"`
}

// CreateBusinessForm is the body of POST /create-business
type CreateBusinessForm struct {
	Name        string `form:"name" validate:"notblank,max=100"`
	Description string `form:"description" validate:"max=1000"`
	Industry    string `form:"industry" validate:"required,industry"`
	LogoColor   string `form:"logo_color" validate:"required,hexcolor"`
	Tagline     string `form:"tagline" validate:"max=100"`
}

// ProductForm is the body of POST /my-businesses/:id/products.
// Price stays a string so it can be parsed as an exact decimal.
type ProductForm struct {
	Name        string `form:"name" validate:"notblank,max=100"`
	Description string `form:"description" validate:"max=1000"`
	Price       string `form:"price" validate:"required,numeric"`
	Stock       int    `form:"stock" validate:"gte=0"`
	Type        string `form:"type" validate:"required,oneof=product service"`
}

// PurchaseForm is the body of POST /business/:id/purchase.
// Confirm is set once the user accepted the confirmation step.
type PurchaseForm struct {
	ProductID int64  `form:"product_id" validate:"required,gt=0"`
	Quantity  string `form:"quantity"`
	Confirm   bool   `form:"confirm"`
}

// InvestForm is the body of POST /trading/invest
type InvestForm struct {
	Market   string `form:"market" validate:"required,oneof=stocks crypto"`
	AssetID  int64  `form:"asset_id" validate:"required,gt=0"`
	Quantity string `form:"quantity"`
	Confirm  bool   `form:"confirm"`
}
