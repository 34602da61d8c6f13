package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/delivery/http/dto"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
	"entrepreneursim/internal/usecase"
)

type marketplacePage struct {
	Businesses []domain.Business
	Total      int
	Filter     usecase.MarketFilter
	Industries []string
}

func marketFilter(c echo.Context) usecase.MarketFilter {
	f := usecase.MarketFilter{Search: c.QueryParam("search"), Industry: c.QueryParam("industry")}
	if f.Industry == "" {
		f.Industry = usecase.AllIndustries
	}
	return f
}

// GET /marketplace - Every business, narrowed by search and industry
func (h *WebHandler) HandleMarketplace(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	filter := marketFilter(c)
	page := Page{Title: "Marketplace", Nav: "marketplace"}
	businesses, err := api.Businesses(c.Request().Context())
	if err != nil {
		page.Data = marketplacePage{Filter: filter}
		return loadFailed(c, h.log, s, err, "marketplace", page, "Failed to load businesses")
	}

	page.Data = marketplacePage{
		Businesses: usecase.FilterBusinesses(businesses, filter),
		Total:      len(businesses),
		Filter:     filter,
		Industries: usecase.Industries(businesses),
	}
	return render(c, http.StatusOK, "marketplace", page)
}

// GET /fragments/businesses - The marketplace grid alone, swapped in on new_business
func (h *WebHandler) HandleBusinessesFragment(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	filter := marketFilter(c)
	businesses, err := api.Businesses(c.Request().Context())
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		return err
	}
	return fragment(c, "business_grid", marketplacePage{
		Businesses: usecase.FilterBusinesses(businesses, filter),
		Total:      len(businesses),
		Filter:     filter,
	})
}

type businessPage struct {
	Business domain.Business
	Products []domain.Product
	User     *domain.User
}

// loadBusiness fetches a business with its catalog, from the embedded list when present
func loadBusiness(c echo.Context, api *backend.Client, id int64) (*domain.Business, []domain.Product, error) {
	ctx := c.Request().Context()
	business, err := api.Business(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if business.Products != nil {
		return business, business.Products, nil
	}
	products, err := api.BusinessProducts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return business, products, nil
}

// GET /business/:id - A business and its catalog
func (h *WebHandler) HandleBusiness(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Business not found")
	}

	page := Page{Title: "Business", Nav: "marketplace"}
	business, products, err := loadBusiness(c, api, id)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Business not found")
		}
		return loadFailed(c, h.log, s, err, "business", page, "Failed to load business")
	}

	user := s.User()
	if user == nil {
		return middleware.Redirect(c, domain.LoginPath)
	}
	page.Title = business.Name
	page.Data = businessPage{Business: *business, Products: products, User: user}
	return render(c, http.StatusOK, "business", page)
}

// confirmPage asks the user to accept an order before it is sent
type confirmPage struct {
	Question string
	Action   string
	Cancel   string
	Fields   map[string]string
}

// POST /business/:id/purchase - Check, confirm and send a purchase
func (h *WebHandler) HandlePurchase(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	businessID, ok := pathID(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Business not found")
	}
	back := fmt.Sprintf("/business/%d", businessID)

	var form dto.PurchaseForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	if err := c.Validate(&form); err != nil {
		return flashRedirect(c, session.FlashError, "Please choose a product to purchase.", back)
	}

	quantity, err := usecase.ParseQuantity(form.Quantity)
	if err != nil {
		return flashRedirect(c, session.FlashError, err.Error(), back)
	}

	_, products, err := loadBusiness(c, api, businessID)
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		return flashRedirect(c, session.FlashError, backend.UserMessage(err, "Purchase failed"), back)
	}
	product, err := usecase.FindProduct(products, form.ProductID)
	if err != nil {
		return flashRedirect(c, session.FlashError, "That product is no longer available.", back)
	}

	user := s.User()
	if user == nil {
		return middleware.Redirect(c, domain.LoginPath)
	}
	plan, err := usecase.PlanPurchase(product, quantity, user.Balance)
	if err != nil {
		return flashRedirect(c, session.FlashError, err.Error(), back)
	}

	if !form.Confirm {
		return render(c, http.StatusOK, "confirm", Page{
			Title: "Confirm Purchase",
			Nav:   "marketplace",
			Data: confirmPage{
				Question: plan.Confirmation(),
				Action:   back + "/purchase",
				Cancel:   back,
				Fields: map[string]string{
					"product_id": fmt.Sprint(product.ID),
					"quantity":   fmt.Sprint(quantity),
				},
			},
		})
	}

	done, ok := s.Begin("purchase")
	if !ok {
		return flashRedirect(c, session.FlashInfo, "A purchase is already in progress.", back)
	}
	defer done()

	resp, err := api.Purchase(c.Request().Context(), backend.PurchaseRequest{ProductID: product.ID, Quantity: quantity})
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		h.log.WithError(err).WithField("product_id", product.ID).Warn("Purchase failed")
		return flashRedirect(c, session.FlashError, backend.UserMessage(err, "Purchase failed"), back)
	}

	s.UpdateBalance(resp.NewBalance)
	h.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"quantity":   quantity,
		"total":      plan.Total.String(),
	}).Info("Purchase completed")
	return flashRedirect(c, session.FlashSuccess, "Purchase successful! 🎉", back)
}
