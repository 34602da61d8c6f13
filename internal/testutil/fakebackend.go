// Package testutil provides an in-process simulation backend for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

var signingKey = []byte("fake-backend-secret")

// StartingBalance is credited to every registered account
var StartingBalance = decimal.NewFromInt(10000)

type account struct {
	password string
	user     domain.User
}

type frame struct {
	event string
	data  string
}

// FakeBackend mimics the simulation REST API and its event stream.
// Fields may be changed from tests between requests.
type FakeBackend struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account
	tokens       map[string]string
	nextID       int64
	businesses   []domain.Business
	products     map[int64][]domain.Product
	transactions map[string][]domain.Transaction
	investments  map[string][]domain.Investment
	stocks       []domain.Asset
	crypto       []domain.Asset
	dashboard    *domain.AdminDashboard
	reported     *decimal.Decimal
	calls        map[string]int
	subscribers  map[chan frame]struct{}
	done         chan struct{}

	// TokenTTL sets the exp claim of issued tokens
	TokenTTL time.Duration
	// PurchaseGate, when set, blocks purchases until it is closed or receives
	PurchaseGate chan struct{}
	// FailProfile makes /api/user/profile answer with this status
	FailProfile int
	// OnRequest, when set, runs before each request is served, e.g. "GET /api/businesses/:id"
	OnRequest func(route string)
}

// NewFakeBackend starts a backend and closes it when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		accounts:     make(map[string]*account),
		tokens:       make(map[string]string),
		nextID:       100,
		products:     make(map[int64][]domain.Product),
		transactions: make(map[string][]domain.Transaction),
		investments:  make(map[string][]domain.Investment),
		calls:        make(map[string]int),
		subscribers:  make(map[chan frame]struct{}),
		done:         make(chan struct{}),
		TokenTTL:     time.Hour,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(f.count)

	api := e.Group("/api")
	api.POST("/auth/login", f.handleLogin)
	api.POST("/auth/register", f.handleRegister)
	api.GET("/events", f.handleEvents)
	api.GET("/businesses", f.handleBusinesses)
	api.GET("/businesses/:id", f.handleBusiness)
	api.GET("/businesses/:id/products", f.handleBusinessProducts)
	api.GET("/market/stocks", f.handleStocks)
	api.GET("/market/crypto", f.handleCrypto)

	authed := api.Group("", f.authenticate)
	authed.GET("/user/profile", f.handleProfile)
	authed.GET("/user/balance", f.handleBalance)
	authed.POST("/businesses", f.handleCreateBusiness)
	authed.POST("/products", f.handleCreateProduct)
	authed.GET("/my-businesses", f.handleMyBusinesses)
	authed.GET("/my-transactions", f.handleMyTransactions)
	authed.GET("/my-investments", f.handleMyInvestments)
	authed.POST("/transactions", f.handlePurchase)
	authed.POST("/investments", f.handleInvest)
	authed.GET("/admin/dashboard", f.handleAdminDashboard)

	f.Server = httptest.NewServer(e)
	t.Cleanup(func() {
		// Release open event streams so Close does not wait on them.
		close(f.done)
		f.Close()
	})
	return f
}

func (f *FakeBackend) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Path()
		f.mu.Lock()
		f.calls[route]++
		f.mu.Unlock()
		if f.OnRequest != nil {
			f.OnRequest(route)
		}
		return next(c)
	}
}

// Calls reports how many requests hit a route, e.g. "POST /api/transactions"
// or "GET /api/businesses/:id"
func (f *FakeBackend) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// AddUser creates an account and returns it
func (f *FakeBackend) AddUser(username, password, role string, balance decimal.Decimal) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(username, password, role, balance)
}

func (f *FakeBackend) addUserLocked(username, password, role string, balance decimal.Decimal) domain.User {
	f.nextID++
	u := domain.User{
		ID:       f.nextID,
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Balance:  balance,
	}
	f.accounts[username] = &account{password: password, user: u}
	return u
}

// User returns the server-side state of an account
func (f *FakeBackend) User(username string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[username].user
}

// SetBalance overwrites an account balance
func (f *FakeBackend) SetBalance(username string, balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[username].user.Balance = balance
}

// IssueToken signs a token for username that expires after ttl
func (f *FakeBackend) IssueToken(username string, ttl time.Duration) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(username, ttl)
}

func (f *FakeBackend) issueLocked(username string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        strconv.FormatInt(time.Now().UnixNano(), 36),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	f.tokens[signed] = username
	return signed
}

// Revoke makes the backend reject token
func (f *FakeBackend) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// AddBusiness registers a business owned by owner and returns it with its id set
func (f *FakeBackend) AddBusiness(owner string, b domain.Business, products ...domain.Product) domain.Business {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	b.ID = f.nextID
	if acc, ok := f.accounts[owner]; ok {
		b.OwnerID = acc.user.ID
	}
	b.OwnerUsername = owner
	for _, p := range products {
		f.nextID++
		p.ID = f.nextID
		p.BusinessID = b.ID
		f.products[b.ID] = append(f.products[b.ID], p)
	}
	f.businesses = append(f.businesses, b)
	return b
}

// Products returns the server-side products of a business
func (f *FakeBackend) Products(businessID int64) []domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Product(nil), f.products[businessID]...)
}

// SetMarket replaces the stock and crypto quotes
func (f *FakeBackend) SetMarket(stocks, crypto []domain.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stocks = stocks
	f.crypto = crypto
}

// AddInvestment gives username a holding
func (f *FakeBackend) AddInvestment(username string, inv domain.Investment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inv.ID = f.nextID
	f.investments[username] = append(f.investments[username], inv)
}

// ReportBalance makes purchase and invest responses carry balance as
// newBalance, whatever the account actually holds
func (f *FakeBackend) ReportBalance(balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reported = &balance
}

// SetDashboard sets the admin dashboard payload
func (f *FakeBackend) SetDashboard(d *domain.AdminDashboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboard = d
}

// Emit pushes an event to every connected event stream
func (f *FakeBackend) Emit(event, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- frame{event: event, data: data}:
		default:
		}
	}
}

// Subscribers reports how many event streams are open
func (f *FakeBackend) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (f *FakeBackend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")

		f.mu.Lock()
		username, ok := f.tokens[token]
		f.mu.Unlock()
		if !ok {
			return errorJSON(c, http.StatusUnauthorized, "Invalid token")
		}

		_, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return signingKey, nil })
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, "Token expired")
		}

		c.Set("username", username)
		return next(c)
	}
}

func username(c echo.Context) string {
	name, _ := c.Get("username").(string)
	return name
}

func (f *FakeBackend) handleLogin(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[req.Username]
	if !ok || acc.password != req.Password {
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": f.issueLocked(req.Username, f.TokenTTL),
		"user":  acc.user,
	})
}

func (f *FakeBackend) handleRegister(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[req.Username]; exists {
		return errorJSON(c, http.StatusBadRequest, "Username already exists")
	}
	u := f.addUserLocked(req.Username, req.Password, req.Role, StartingBalance)
	u.Email = req.Email
	f.accounts[req.Username].user = u
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"token": f.issueLocked(req.Username, f.TokenTTL),
		"user":  u,
	})
}

func (f *FakeBackend) handleProfile(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailProfile != 0 {
		return errorJSON(c, f.FailProfile, "Profile unavailable")
	}
	return c.JSON(http.StatusOK, f.accounts[username(c)].user)
}

func (f *FakeBackend) handleBalance(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]interface{}{"balance": f.accounts[username(c)].user.Balance})
}

func (f *FakeBackend) handleBusinesses(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]domain.Business, 0, len(f.businesses))
	list = append(list, f.businesses...)
	return c.JSON(http.StatusOK, list)
}

func (f *FakeBackend) findBusinessLocked(c echo.Context) (*domain.Business, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, errorJSON(c, http.StatusBadRequest, "Invalid business id")
	}
	for i := range f.businesses {
		if f.businesses[i].ID == id {
			return &f.businesses[i], nil
		}
	}
	return nil, errorJSON(c, http.StatusNotFound, "Business not found")
}

func (f *FakeBackend) handleBusiness(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.findBusinessLocked(c)
	if b == nil {
		return err
	}
	withProducts := *b
	withProducts.Products = append([]domain.Product{}, f.products[b.ID]...)
	return c.JSON(http.StatusOK, withProducts)
}

func (f *FakeBackend) handleBusinessProducts(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.findBusinessLocked(c)
	if b == nil {
		return err
	}
	return c.JSON(http.StatusOK, append([]domain.Product{}, f.products[b.ID]...))
}

func (f *FakeBackend) handleCreateBusiness(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Industry    string `json:"industry"`
		LogoColor   string `json:"logoColor"`
		Tagline     string `json:"tagline"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "Business name is required")
	}

	f.mu.Lock()
	owner := f.accounts[username(c)].user
	f.nextID++
	b := domain.Business{
		ID:            f.nextID,
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Name:          req.Name,
		Industry:      req.Industry,
		LogoColor:     req.LogoColor,
		Tagline:       req.Tagline,
		Description:   req.Description,
		Revenue:       decimal.Zero,
	}
	f.businesses = append(f.businesses, b)
	f.mu.Unlock()

	f.Emit(domain.EventNewBusiness, fmt.Sprintf(`{"id":%d,"name":%q}`, b.ID, b.Name))
	return c.JSON(http.StatusCreated, b)
}

func (f *FakeBackend) handleCreateProduct(c echo.Context) error {
	var req struct {
		BusinessID  int64           `json:"business_id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Type        string          `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	owned := false
	for _, b := range f.businesses {
		if b.ID == req.BusinessID && b.OwnerUsername == username(c) {
			owned = true
		}
	}
	if !owned {
		return errorJSON(c, http.StatusForbidden, "Not your business")
	}

	f.nextID++
	p := domain.Product{
		ID:          f.nextID,
		BusinessID:  req.BusinessID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	f.products[req.BusinessID] = append(f.products[req.BusinessID], p)
	return c.JSON(http.StatusCreated, p)
}

func (f *FakeBackend) handleMyBusinesses(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mine := []domain.Business{}
	for _, b := range f.businesses {
		if b.OwnerUsername == username(c) {
			mine = append(mine, b)
		}
	}
	return c.JSON(http.StatusOK, mine)
}

func (f *FakeBackend) handleMyTransactions(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := append([]domain.Transaction{}, f.transactions[username(c)]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt.Time) })
	return c.JSON(http.StatusOK, list)
}

func (f *FakeBackend) handleMyInvestments(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, append([]domain.Investment{}, f.investments[username(c)]...))
}

func (f *FakeBackend) handlePurchase(c echo.Context) error {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity < 1 {
		return errorJSON(c, http.StatusBadRequest, "Invalid quantity")
	}

	if gate := f.PurchaseGate; gate != nil {
		select {
		case <-gate:
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	f.mu.Lock()
	buyer := f.accounts[username(c)]
	var (
		product  *domain.Product
		business domain.Business
	)
	for _, b := range f.businesses {
		for i := range f.products[b.ID] {
			if f.products[b.ID][i].ID == req.ProductID {
				product = &f.products[b.ID][i]
				business = b
			}
		}
	}
	if product == nil {
		f.mu.Unlock()
		return errorJSON(c, http.StatusNotFound, "Product not found")
	}
	if product.IsPhysical() && product.Stock < req.Quantity {
		f.mu.Unlock()
		return errorJSON(c, http.StatusBadRequest, "Insufficient stock")
	}
	total := product.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
	if buyer.user.Balance.LessThan(total) {
		f.mu.Unlock()
		return errorJSON(c, http.StatusBadRequest, "Insufficient balance")
	}

	buyer.user.Balance = buyer.user.Balance.Sub(total)
	if product.IsPhysical() {
		product.Stock -= req.Quantity
	}
	if seller, ok := f.accounts[business.OwnerUsername]; ok {
		seller.user.Balance = seller.user.Balance.Add(total)
	}
	for i := range f.businesses {
		if f.businesses[i].ID == business.ID {
			f.businesses[i].Revenue = f.businesses[i].Revenue.Add(total)
		}
	}

	f.nextID++
	tx := domain.Transaction{
		ID:             f.nextID,
		BuyerUsername:  buyer.user.Username,
		SellerUsername: business.OwnerUsername,
		ProductID:      product.ID,
		ProductName:    product.Name,
		BusinessID:     business.ID,
		BusinessName:   business.Name,
		Quantity:       req.Quantity,
		Amount:         total,
		CreatedAt:      domain.Timestamp{Time: time.Now().UTC()},
	}
	f.transactions[buyer.user.Username] = append(f.transactions[buyer.user.Username], tx)
	newBalance := buyer.user.Balance
	if f.reported != nil {
		newBalance = *f.reported
	}
	f.mu.Unlock()

	f.Emit(domain.EventTransactionCompleted, fmt.Sprintf(`{"id":%d,"business_id":%d}`, tx.ID, tx.BusinessID))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"newBalance":  newBalance,
		"transaction": tx,
	})
}

func (f *FakeBackend) handleInvest(c echo.Context) error {
	var req struct {
		AssetType string          `json:"asset_type"`
		AssetID   int64           `json:"asset_id"`
		Quantity  decimal.Decimal `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || !req.Quantity.IsPositive() {
		return errorJSON(c, http.StatusBadRequest, "Invalid quantity")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	assets := f.stocks
	if req.AssetType == domain.AssetTypeCrypto {
		assets = f.crypto
	}
	var asset *domain.Asset
	for i := range assets {
		if assets[i].ID == req.AssetID {
			asset = &assets[i]
		}
	}
	if asset == nil {
		return errorJSON(c, http.StatusNotFound, "Asset not found")
	}

	investor := f.accounts[username(c)]
	cost := asset.Price.Mul(req.Quantity)
	if investor.user.Balance.LessThan(cost) {
		return errorJSON(c, http.StatusBadRequest, "Insufficient balance")
	}
	investor.user.Balance = investor.user.Balance.Sub(cost)

	f.nextID++
	inv := domain.Investment{
		ID:            f.nextID,
		AssetType:     req.AssetType,
		AssetID:       asset.ID,
		AssetSymbol:   asset.Symbol,
		AssetName:     asset.Name,
		Quantity:      req.Quantity,
		PurchasePrice: asset.Price,
		CurrentPrice:  asset.Price,
	}
	f.investments[investor.user.Username] = append(f.investments[investor.user.Username], inv)
	newBalance := investor.user.Balance
	if f.reported != nil {
		newBalance = *f.reported
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"newBalance": newBalance,
		"investment": inv,
	})
}

func (f *FakeBackend) handleStocks(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, append([]domain.Asset{}, f.stocks...))
}

func (f *FakeBackend) handleCrypto(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.JSON(http.StatusOK, append([]domain.Asset{}, f.crypto...))
}

func (f *FakeBackend) handleAdminDashboard(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accounts[username(c)].user.Role != domain.RoleTeacher {
		return errorJSON(c, http.StatusForbidden, "Teacher access required")
	}
	if f.dashboard == nil {
		return c.JSON(http.StatusOK, domain.AdminDashboard{})
	}
	return c.JSON(http.StatusOK, f.dashboard)
}

func (f *FakeBackend) handleEvents(c echo.Context) error {
	ch := make(chan frame, 16)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.subscribers, ch)
		f.mu.Unlock()
	}()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-f.done:
			return nil
		case fr := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", fr.event, fr.data)
			w.Flush()
		}
	}
}
