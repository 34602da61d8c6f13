package http

import (
	"fmt"
	"net/http"

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

type tradingPage struct {
	Market      string
	Assets      []domain.Asset
	Investments []domain.Investment
	Portfolio   usecase.Portfolio
	Balance     decimal.Decimal
}

type assetTable struct {
	Market string
	Assets []domain.Asset
}

func marketParam(c echo.Context) string {
	if c.QueryParam("market") == domain.MarketCrypto {
		return domain.MarketCrypto
	}
	return domain.MarketStocks
}

func tradingPath(market string) string {
	return "/trading?market=" + market
}

// GET /trading - Market quotes and the student's holdings
func (h *WebHandler) HandleTrading(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	market := marketParam(c)
	var (
		stocks      []domain.Asset
		crypto      []domain.Asset
		investments []domain.Investment
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() (err error) {
		stocks, err = api.Stocks(ctx)
		return err
	})
	g.Go(func() (err error) {
		crypto, err = api.Crypto(ctx)
		return err
	})
	g.Go(func() (err error) {
		investments, err = api.MyInvestments(ctx)
		return err
	})

	page := Page{Title: "Trading", Nav: "trading"}
	if err := g.Wait(); err != nil {
		page.Data = tradingPage{Market: market}
		return loadFailed(c, h.log, s, err, "trading", page, "Failed to load market data")
	}

	user := s.User()
	if user == nil {
		return middleware.Redirect(c, domain.LoginPath)
	}
	assets := stocks
	if market == domain.MarketCrypto {
		assets = crypto
	}
	page.Data = tradingPage{
		Market:      market,
		Assets:      assets,
		Investments: investments,
		Portfolio:   usecase.SummarizePortfolio(investments),
		Balance:     user.Balance,
	}
	return render(c, http.StatusOK, "trading", page)
}

// GET /fragments/assets - The quote table alone, swapped in on market_update
func (h *WebHandler) HandleAssetsFragment(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	market := marketParam(c)
	assets, err := api.Market(c.Request().Context(), market)
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		return err
	}
	return fragment(c, "asset_table", assetTable{Market: market, Assets: assets})
}

// POST /trading/invest - Check, confirm and send an investment order
func (h *WebHandler) HandleInvest(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	var form dto.InvestForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	if err := c.Validate(&form); err != nil {
		return flashRedirect(c, session.FlashError, "Please choose an asset to buy.", tradingPath(marketParam(c)))
	}
	back := tradingPath(form.Market)

	quantity, err := usecase.ParseAssetQuantity(form.Quantity)
	if err != nil {
		return flashRedirect(c, session.FlashError, err.Error(), back)
	}

	assets, err := api.Market(c.Request().Context(), form.Market)
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		return flashRedirect(c, session.FlashError, backend.UserMessage(err, "Investment failed"), back)
	}
	asset, err := usecase.FindAsset(assets, form.AssetID)
	if err != nil {
		return flashRedirect(c, session.FlashError, "That asset is no longer listed.", back)
	}

	user := s.User()
	if user == nil {
		return middleware.Redirect(c, domain.LoginPath)
	}
	plan, err := usecase.PlanInvestment(asset, domain.AssetTypeForMarket(form.Market), quantity, user.Balance)
	if err != nil {
		return flashRedirect(c, session.FlashError, err.Error(), back)
	}

	if !form.Confirm {
		return render(c, http.StatusOK, "confirm", Page{
			Title: "Confirm Investment",
			Nav:   "trading",
			Data: confirmPage{
				Question: plan.Confirmation(),
				Action:   "/trading/invest",
				Cancel:   back,
				Fields: map[string]string{
					"market":   form.Market,
					"asset_id": fmt.Sprint(asset.ID),
					"quantity": quantity.String(),
				},
			},
		})
	}

	done, ok := s.Begin("invest")
	if !ok {
		return flashRedirect(c, session.FlashInfo, "An investment is already in progress.", back)
	}
	defer done()

	resp, err := api.Invest(c.Request().Context(), backend.InvestRequest{
		AssetType: plan.AssetType,
		AssetID:   asset.ID,
		Quantity:  quantity.InexactFloat64(),
	})
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		h.log.WithError(err).WithField("asset", asset.Symbol).Warn("Investment failed")
		return flashRedirect(c, session.FlashError, backend.UserMessage(err, "Investment failed"), back)
	}

	s.UpdateBalance(resp.NewBalance)
	h.log.WithFields(logrus.Fields{
		"asset":    asset.Symbol,
		"quantity": quantity.String(),
		"total":    plan.Total.String(),
	}).Info("Investment completed")
	return flashRedirect(c, session.FlashSuccess, "Investment successful! 📈", back)
}
