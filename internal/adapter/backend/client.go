package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

// Client calls the simulation backend's REST API.
// A zero credential sends unauthenticated requests; WithCredential binds one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamHTTP *http.Client
	credential string
}

// NewClient creates a new backend client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// The event stream is long-lived and must not be cut by a request timeout.
		streamHTTP: &http.Client{},
	}
}

// WithCredential returns a copy of the client that sends credential as a bearer token
func (c *Client) WithCredential(credential string) *Client {
	bound := *c
	bound.credential = credential
	return &bound
}

// Credential returns the bearer token the client is bound to
func (c *Client) Credential() string {
	return c.credential
}

// BaseURL returns the backend root URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-success response from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error: status=%d, message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error: status=%d", e.StatusCode)
}

// Unwrap lets callers match a rejected credential with errors.Is(err, domain.ErrUnauthenticated)
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthenticated
	}
	return nil
}

// UserMessage returns the server's error message when there is one, fallback otherwise
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx so outgoing requests carry the browser request's id
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if c.credential != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.credential)
	}
	if id := requestIDFrom(ctx); id != "" {
		req.Header.Set(echo.HeaderXRequestID, id)
	}
	return req, nil
}

// do sends a request and decodes a JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

// LoginRequest is the payload of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the payload of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("login response is missing token or user")
	}
	return &resp, nil
}

// Register creates a new identity and returns its token
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("register response is missing token or user")
	}
	return &resp, nil
}

// Profile resolves the bound credential to a user
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Balance returns the current balance of the bound user
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/balance", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

// Businesses lists every business in the marketplace
func (c *Client) Businesses(ctx context.Context) ([]domain.Business, error) {
	var businesses []domain.Business
	if err := c.do(ctx, http.MethodGet, "/api/businesses", nil, &businesses); err != nil {
		return nil, err
	}
	return businesses, nil
}

// Business fetches one business, usually with its products embedded
func (c *Client) Business(ctx context.Context, id int64) (*domain.Business, error) {
	var business domain.Business
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/businesses/%d", id), nil, &business); err != nil {
		return nil, err
	}
	return &business, nil
}

// BusinessProducts lists the products of one business
func (c *Client) BusinessProducts(ctx context.Context, id int64) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/businesses/%d/products", id), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateBusinessRequest is the payload of POST /api/businesses
type CreateBusinessRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Industry    string `json:"industry"`
	LogoColor   string `json:"logoColor"`
	Tagline     string `json:"tagline"`
}

// CreateBusiness creates a business owned by the bound user
func (c *Client) CreateBusiness(ctx context.Context, req CreateBusinessRequest) (*domain.Business, error) {
	var business domain.Business
	if err := c.do(ctx, http.MethodPost, "/api/businesses", req, &business); err != nil {
		return nil, err
	}
	return &business, nil
}

// CreateProductRequest is the payload of POST /api/products
type CreateProductRequest struct {
	BusinessID  int64   `json:"business_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Type        string  `json:"type"`
}

// CreateProduct adds a product to one of the bound user's businesses
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// MyBusinesses lists the businesses owned by the bound user
func (c *Client) MyBusinesses(ctx context.Context) ([]domain.Business, error) {
	var businesses []domain.Business
	if err := c.do(ctx, http.MethodGet, "/api/my-businesses", nil, &businesses); err != nil {
		return nil, err
	}
	return businesses, nil
}

// MyTransactions lists the bound user's purchases, newest first
func (c *Client) MyTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/my-transactions", nil, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// MyInvestments lists the bound user's holdings
func (c *Client) MyInvestments(ctx context.Context) ([]domain.Investment, error) {
	var investments []domain.Investment
	if err := c.do(ctx, http.MethodGet, "/api/my-investments", nil, &investments); err != nil {
		return nil, err
	}
	return investments, nil
}

// PurchaseRequest is the payload of POST /api/transactions
type PurchaseRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PurchaseResponse carries the buyer's authoritative balance after the purchase
type PurchaseResponse struct {
	NewBalance  decimal.Decimal     `json:"newBalance"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// Purchase buys a product from a business
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResponse, error) {
	var resp PurchaseResponse
	if err := c.do(ctx, http.MethodPost, "/api/transactions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InvestRequest is the payload of POST /api/investments
type InvestRequest struct {
	AssetType string  `json:"asset_type"`
	AssetID   int64   `json:"asset_id"`
	Quantity  float64 `json:"quantity"`
}

// InvestResponse carries the investor's authoritative balance after the trade
type InvestResponse struct {
	NewBalance decimal.Decimal    `json:"newBalance"`
	Investment *domain.Investment `json:"investment,omitempty"`
}

// Invest buys a quantity of a stock or crypto asset
func (c *Client) Invest(ctx context.Context, req InvestRequest) (*InvestResponse, error) {
	var resp InvestResponse
	if err := c.do(ctx, http.MethodPost, "/api/investments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stocks lists the stock market quotes
func (c *Client) Stocks(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.do(ctx, http.MethodGet, "/api/market/stocks", nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Crypto lists the cryptocurrency quotes
func (c *Client) Crypto(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.do(ctx, http.MethodGet, "/api/market/crypto", nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Market lists the quotes for a trading tab
func (c *Client) Market(ctx context.Context, market string) ([]domain.Asset, error) {
	if market == domain.MarketCrypto {
		return c.Crypto(ctx)
	}
	return c.Stocks(ctx)
}

// AdminDashboard fetches the teacher's aggregate view
func (c *Client) AdminDashboard(ctx context.Context) (*domain.AdminDashboard, error) {
	var dashboard domain.AdminDashboard
	if err := c.do(ctx, http.MethodGet, "/api/admin/dashboard", nil, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}
