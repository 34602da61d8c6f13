package http

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrepreneursim/internal/domain"
)

func (a *testApp) seedMarket() {
	a.backend.SetMarket(
		[]domain.Asset{{ID: 1, Symbol: "ACME", Name: "Acme Corp", Price: decimal.NewFromInt(100), ChangePercent: decimal.RequireFromString("1.25")}},
		[]domain.Asset{{ID: 2, Symbol: "BTC", Name: "Bitcoin", Price: decimal.NewFromInt(40000), ChangePercent: decimal.RequireFromString("-3.5")}},
	)
}

func TestTradingTabs(t *testing.T) {
	a := newTestApp(t)
	a.seedMarket()
	sid := a.login(t, "alice", domain.RoleStudent, decimal.NewFromInt(10000))

	body := a.get("/trading", sid).Body.String()
	assert.Contains(t, body, "ACME")
	assert.NotContains(t, body, "BTC")
	// html/template escapes the leading plus sign.
	assert.Contains(t, body, "&#43;1.25%")

	body = a.get("/trading?market=crypto", sid).Body.String()
	assert.Contains(t, body, "BTC")
	assert.Contains(t, body, "-3.50%")
	assert.Equal(t, 2, a.backend.Calls("GET /api/market/stocks"))
	assert.Equal(t, 2, a.backend.Calls("GET /api/market/crypto"))

	rec := a.get("/fragments/assets?market=crypto", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bitcoin")
	assert.NotContains(t, rec.Body.String(), "<html")
}

func TestInvestConfirmThenBuy(t *testing.T) {
	a := newTestApp(t)
	a.seedMarket()
	sid := a.login(t, "alice", domain.RoleStudent, decimal.NewFromInt(10000))
	form := url.Values{"market": {"stocks"}, "asset_id": {"1"}, "quantity": {"2.5"}}

	rec := a.post("/trading/invest", form, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Buy 2.5 ACME for $250?")
	assert.Equal(t, 0, a.backend.Calls("POST /api/investments"))

	form.Set("confirm", "true")
	a.backend.ReportBalance(decimal.NewFromInt(9000))
	rec = a.post("/trading/invest", form, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/trading?market=stocks", rec.Header().Get("Location"))
	assert.Equal(t, 1, a.backend.Calls("POST /api/investments"))
	assert.True(t, decimal.NewFromInt(9000).Equal(a.session(t, sid).User().Balance))

	body := a.get("/trading?market=stocks", sid).Body.String()
	assert.Contains(t, body, "Investment successful! 📈")
	assert.Contains(t, body, "Acme Corp")
}

func TestInvestPrechecks(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"insufficient funds", url.Values{"market": {"crypto"}, "asset_id": {"2"}, "quantity": {"1"}},
			"Insufficient funds! You need $40,000 but only have $10,000."},
		{"zero quantity", url.Values{"market": {"stocks"}, "asset_id": {"1"}, "quantity": {"0"}},
			"Please enter a quantity greater than 0."},
		{"unknown asset", url.Values{"market": {"stocks"}, "asset_id": {"99"}, "quantity": {"1"}},
			"That asset is no longer listed."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t)
			a.seedMarket()
			sid := a.login(t, "alice", domain.RoleStudent, decimal.NewFromInt(10000))
			tc.form.Set("confirm", "true")

			rec := a.post("/trading/invest", tc.form, sid)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, 0, a.backend.Calls("POST /api/investments"))
			assert.Contains(t, a.get(rec.Header().Get("Location"), sid).Body.String(), tc.want)
		})
	}
}

func TestAdminDashboardStats(t *testing.T) {
	a := newTestApp(t)
	a.backend.SetDashboard(&domain.AdminDashboard{
		Stats: domain.DashboardStats{
			TotalStudents:     4,
			TotalBusinesses:   3,
			TotalTransactions: 12,
			TotalRevenue:      decimal.NewFromInt(1000),
		},
		TopStudents: []domain.StudentSummary{{ID: 1, Username: "alice", Email: "a@school.test", BusinessCount: 2}},
	})
	sid := a.login(t, "mrs-k", domain.RoleTeacher, decimal.Zero)

	body := a.get("/admin", sid).Body.String()
	assert.Contains(t, body, `id="avg-revenue">$333.33<`)
	assert.Contains(t, body, `id="businesses-per-student">0.8<`)

	body = a.get("/admin?tab=students", sid).Body.String()
	assert.Contains(t, body, "a@school.test")
	assert.NotContains(t, body, `id="avg-revenue"`)
}

func TestAdminDashboardEmptyClass(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "mrs-k", domain.RoleTeacher, decimal.Zero)

	body := a.get("/admin?tab=bogus", sid).Body.String()
	assert.Contains(t, body, `id="avg-revenue">$0.00<`)
	assert.Contains(t, body, `id="businesses-per-student">0<`)
}
