package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/delivery/http/dto"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
	"entrepreneursim/internal/usecase"
)

const (
	dashboardBusinesses   = 4
	dashboardTransactions = 5
)

type dashboardPage struct {
	Businesses    []domain.Business
	BusinessCount int
	Transactions  []domain.Transaction
	Revenue       decimal.Decimal
	Portfolio     usecase.Portfolio
	Holdings      int
}

// GET /dashboard - Student overview
func (h *WebHandler) HandleDashboard(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	var (
		businesses   []domain.Business
		transactions []domain.Transaction
		investments  []domain.Investment
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() (err error) {
		businesses, err = api.MyBusinesses(ctx)
		return err
	})
	g.Go(func() (err error) {
		transactions, err = api.MyTransactions(ctx)
		return err
	})
	g.Go(func() (err error) {
		investments, err = api.MyInvestments(ctx)
		return err
	})

	page := Page{Title: "Dashboard", Nav: "dashboard"}
	if err := g.Wait(); err != nil {
		return loadFailed(c, h.log, s, err, "dashboard", page, "Failed to load dashboard")
	}

	data := dashboardPage{
		Businesses:    businesses,
		BusinessCount: len(businesses),
		Transactions:  usecase.RecentTransactions(transactions, dashboardTransactions),
		Revenue:       usecase.TotalRevenue(businesses),
		Portfolio:     usecase.SummarizePortfolio(investments),
		Holdings:      len(investments),
	}
	if len(data.Businesses) > dashboardBusinesses {
		data.Businesses = data.Businesses[:dashboardBusinesses]
	}
	page.Data = data
	return render(c, http.StatusOK, "dashboard", page)
}

type createBusinessPage struct {
	Form       dto.CreateBusinessForm
	Industries []string
	Colors     []string
}

func newCreateBusinessPage(form dto.CreateBusinessForm) Page {
	return Page{
		Title: "Create Business",
		Nav:   "create-business",
		Data: createBusinessPage{
			Form:       form,
			Industries: domain.Industries,
			Colors:     domain.PresetColors,
		},
	}
}

// GET /create-business - Business creation form
func (h *WebHandler) HandleCreateBusiness(c echo.Context) error {
	form := dto.CreateBusinessForm{Industry: domain.DefaultIndustry, LogoColor: domain.DefaultLogoColor}
	return render(c, http.StatusOK, "create_business", newCreateBusinessPage(form))
}

// POST /create-business - Create the business and open its page
func (h *WebHandler) HandleCreateBusinessPost(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	var form dto.CreateBusinessForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	page := newCreateBusinessPage(form)
	if err := c.Validate(&form); err != nil {
		page.Errors = h.validator.FieldErrors(err)
		return render(c, http.StatusUnprocessableEntity, "create_business", page)
	}

	business, err := api.CreateBusiness(c.Request().Context(), backend.CreateBusinessRequest{
		Name:        form.Name,
		Description: form.Description,
		Industry:    form.Industry,
		LogoColor:   form.LogoColor,
		Tagline:     form.Tagline,
	})
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		h.log.WithError(err).Warn("Failed to create business")
		page.Error = backend.UserMessage(err, "Failed to create business")
		return render(c, http.StatusOK, "create_business", page)
	}

	h.log.WithField("business_id", business.ID).Info("Business created")
	return flashRedirect(c, session.FlashSuccess, "Business created successfully! 🎉", fmt.Sprintf("/business/%d", business.ID))
}

type myBusinessesPage struct {
	Businesses []domain.Business
	Selected   *domain.Business
	Products   []domain.Product
	Form       dto.ProductForm
}

// GET /my-businesses - The student's businesses and the selected one's catalog
func (h *WebHandler) HandleMyBusinesses(c echo.Context) error {
	selected, _ := strconv.ParseInt(c.QueryParam("business"), 10, 64)
	return h.myBusinesses(c, selected, dto.ProductForm{Type: domain.ProductTypeProduct}, nil)
}

func (h *WebHandler) myBusinesses(c echo.Context, selectedID int64, form dto.ProductForm, fieldErrors map[string]string) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	ctx := c.Request().Context()
	page := Page{Title: "My Businesses", Nav: "my-businesses", Errors: fieldErrors}
	status := http.StatusOK
	if fieldErrors != nil {
		status = http.StatusUnprocessableEntity
	}

	businesses, err := api.MyBusinesses(ctx)
	if err != nil {
		return loadFailed(c, h.log, s, err, "my_businesses", page, "Failed to load businesses")
	}

	data := myBusinessesPage{Businesses: businesses, Form: form}
	for i := range businesses {
		if businesses[i].ID == selectedID {
			data.Selected = &businesses[i]
			break
		}
	}
	if data.Selected == nil && len(businesses) > 0 {
		data.Selected = &businesses[0]
	}

	if data.Selected != nil {
		data.Products = data.Selected.Products
		if data.Products == nil {
			products, err := api.BusinessProducts(ctx, data.Selected.ID)
			if err != nil {
				page.Data = data
				return loadFailed(c, h.log, s, err, "my_businesses", page, "Failed to load products")
			}
			data.Products = products
		}
	}

	page.Data = data
	return render(c, status, "my_businesses", page)
}

// POST /my-businesses/:id/products - Add a product or service to one of the student's businesses
func (h *WebHandler) HandleAddProduct(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	businessID, ok := pathID(c, "id")
	if !ok {
		return flashRedirect(c, session.FlashError, "Please select a business first", "/my-businesses")
	}
	back := fmt.Sprintf("/my-businesses?business=%d", businessID)

	var form dto.ProductForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	if err := c.Validate(&form); err != nil {
		return h.myBusinesses(c, businessID, form, h.validator.FieldErrors(err))
	}

	price, err := decimal.NewFromString(form.Price)
	if err != nil || price.IsNegative() {
		return h.myBusinesses(c, businessID, form, map[string]string{"price": "price must be a number of at least 0"})
	}

	stock := form.Stock
	if form.Type == domain.ProductTypeService {
		stock = 0
	}

	product, err := api.CreateProduct(c.Request().Context(), backend.CreateProductRequest{
		BusinessID:  businessID,
		Name:        form.Name,
		Description: form.Description,
		Price:       price.InexactFloat64(),
		Stock:       stock,
		Type:        form.Type,
	})
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		h.log.WithError(err).WithField("business_id", businessID).Warn("Failed to add product")
		return flashRedirect(c, session.FlashError, backend.UserMessage(err, "Failed to add product"), back)
	}

	h.log.WithFields(logrus.Fields{"business_id": businessID, "product_id": product.ID}).Info("Product added")
	return flashRedirect(c, session.FlashSuccess, "Product added successfully! 🎉", back)
}
