package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/notifier"
	"entrepreneursim/internal/repository"
	"entrepreneursim/internal/session"
	"entrepreneursim/internal/testutil"
)

type testApp struct {
	e        *echo.Echo
	backend  *testutil.FakeBackend
	sessions *session.Manager
	notifier *notifier.Notifier
	events   *EventsHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fb := testutil.NewFakeBackend(t)
	client := backend.NewClient(fb.URL, 5*time.Second)
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	manager := session.NewManager(client, repository.NewMemoryCredentialRepository(), sealer, session.Options{Logger: log})
	hub := notifier.New(notifier.SourceFunc(func(context.Context) (notifier.Stream, error) {
		return nil, errors.New("offline")
	}), notifier.WithLogger(log))

	renderer, err := NewRenderer()
	require.NoError(t, err)
	validator := NewFormValidator()
	events := NewEventsHandler(hub, log)

	e := echo.New()
	SetupRoutes(e, &RouterConfig{
		Sessions:      manager,
		AuthHandler:   NewAuthHandler(manager, validator, false, log),
		WebHandler:    NewWebHandler(validator, log),
		AdminHandler:  NewAdminHandler(log),
		EventsHandler: events,
		Renderer:      renderer,
		Validator:     validator,
		Logger:        log,
	})

	return &testApp{e: e, backend: fb, sessions: manager, notifier: hub, events: events}
}

func (a *testApp) do(method, path string, form url.Values, sid string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sid})
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path, sid string) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, path, nil, sid)
}

func (a *testApp) post(path string, form url.Values, sid string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, path, form, sid)
}

// sessionCookie returns the last sid the response pointed the browser at
func sessionCookie(rec *httptest.ResponseRecorder) string {
	var sid string
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			sid = c.Value
		}
	}
	return sid
}

// login creates an account and logs it in, returning the session cookie
func (a *testApp) login(t *testing.T, username, role string, balance decimal.Decimal) string {
	t.Helper()
	a.backend.AddUser(username, "secret1", role, balance)

	rec := a.post("/login", url.Values{"username": {username}, "password": {"secret1"}}, "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	sid := sessionCookie(rec)
	require.NotEmpty(t, sid)
	return sid
}

func (a *testApp) session(t *testing.T, sid string) *session.Session {
	t.Helper()
	s, created := a.sessions.Get(sid)
	require.False(t, created)
	return s
}

func TestLandingIsPublic(t *testing.T) {
	a := newTestApp(t)

	rec := a.get("/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Entrepreneur Simulator")
	assert.NotEmpty(t, sessionCookie(rec))
}

func TestLoginRotatesSessionAndGoesHome(t *testing.T) {
	a := newTestApp(t)
	a.backend.AddUser("alice", "secret1", domain.RoleStudent, decimal.NewFromInt(10000))

	anon := sessionCookie(a.get("/login", ""))
	require.NotEmpty(t, anon)

	rec := a.post("/login", url.Values{"username": {"alice"}, "password": {"secret1"}}, anon)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	sid := sessionCookie(rec)
	assert.NotEqual(t, anon, sid)
	assert.Equal(t, "alice", a.session(t, sid).User().Username)

	// The pre-login id carries no identity.
	rec = a.get("/dashboard", anon)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = a.get("/dashboard", sid)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome back, alice!")
	assert.Contains(t, rec.Body.String(), "$10,000")
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	a := newTestApp(t)
	a.backend.AddUser("alice", "secret1", domain.RoleStudent, decimal.Zero)

	rec := a.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="alice"`)
}

func TestLoginValidationSendsNothing(t *testing.T) {
	a := newTestApp(t)

	rec := a.post("/login", url.Values{"username": {"  "}, "password": {""}}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, a.backend.Calls("POST /api/auth/login"))
}

func TestRegisterTeacherLandsOnAdmin(t *testing.T) {
	a := newTestApp(t)

	rec := a.post("/register", url.Values{
		"username": {"mrs-k"},
		"email":    {"k@school.test"},
		"password": {"secret1"},
		"role":     {domain.RoleTeacher},
	}, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, domain.RoleTeacher, a.session(t, sessionCookie(rec)).User().Role)
}

func TestRegisterRejectsDuplicateAndShortPassword(t *testing.T) {
	a := newTestApp(t)
	a.backend.AddUser("alice", "secret1", domain.RoleStudent, decimal.Zero)

	rec := a.post("/register", url.Values{
		"username": {"alice"},
		"email":    {"a@school.test"},
		"password": {"secret1"},
		"role":     {domain.RoleStudent},
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")

	calls := a.backend.Calls("POST /api/auth/register")
	rec = a.post("/register", url.Values{
		"username": {"bob"},
		"email":    {"b@school.test"},
		"password": {"123"},
		"role":     {domain.RoleStudent},
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, calls, a.backend.Calls("POST /api/auth/register"))
}

func TestLogoutReturnsToLanding(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "alice", domain.RoleStudent, decimal.Zero)

	rec := a.post("/logout", url.Values{}, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.NotEqual(t, sid, sessionCookie(rec))

	rec = a.get("/dashboard", sid)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestLogoutThenLoginYieldsNewIdentity(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "alice", domain.RoleStudent, decimal.Zero)
	a.backend.AddUser("bob", "secret1", domain.RoleTeacher, decimal.Zero)

	fresh := sessionCookie(a.post("/logout", url.Values{}, sid))
	rec := a.post("/login", url.Values{"username": {"bob"}, "password": {"secret1"}}, fresh)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	want := a.backend.User("bob")
	user := a.session(t, sessionCookie(rec)).User()
	require.NotNil(t, user)
	assert.Equal(t, want.ID, user.ID)
	assert.Equal(t, want.Username, user.Username)
	assert.Equal(t, want.Role, user.Role)
	assert.True(t, want.Balance.Equal(user.Balance))
}

func TestRouteGuards(t *testing.T) {
	a := newTestApp(t)
	student := a.login(t, "alice", domain.RoleStudent, decimal.Zero)
	teacher := a.login(t, "mrs-k", domain.RoleTeacher, decimal.Zero)

	tests := []struct {
		name    string
		path    string
		sid     string
		wantLoc string
	}{
		{"anonymous dashboard", "/dashboard", "", "/login"},
		{"anonymous marketplace", "/marketplace", "", "/login"},
		{"anonymous admin", "/admin", "", "/login"},
		{"student admin", "/admin", student, "/dashboard"},
		{"teacher dashboard", "/dashboard", teacher, "/admin"},
		{"teacher trading", "/trading", teacher, "/admin"},
		{"teacher my businesses", "/my-businesses", teacher, "/admin"},
		{"student login page", "/login", student, "/dashboard"},
		{"teacher register page", "/register", teacher, "/admin"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.get(tc.path, tc.sid)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tc.wantLoc, rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestRejectedCredentialLogsOut(t *testing.T) {
	a := newTestApp(t)
	sid := a.login(t, "alice", domain.RoleStudent, decimal.Zero)
	s := a.session(t, sid)
	a.backend.Revoke(s.API().Credential())

	rec := a.get("/dashboard", sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.False(t, s.Authenticated())

	rec = a.get("/login", sid)
	assert.Contains(t, rec.Body.String(), sessionExpiredMessage)
}

func TestUnknownRouteRendersErrorPage(t *testing.T) {
	a := newTestApp(t)

	rec := a.get("/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found")
}

func TestLogoutDuringPageLoadRedirectsToLogin(t *testing.T) {
	tests := []struct {
		name   string
		during string
		method string
		path   string
		form   func(p domain.Product) url.Values
	}{
		{"business page", "GET /api/businesses/:id", http.MethodGet, "/business/%d", nil},
		{"purchase", "GET /api/businesses/:id", http.MethodPost, "/business/%d/purchase",
			func(p domain.Product) url.Values { return purchaseForm(p, "1", true) }},
		{"trading page", "GET /api/my-investments", http.MethodGet, "/trading", nil},
		{"invest", "GET /api/market/stocks", http.MethodPost, "/trading/invest",
			func(domain.Product) url.Values {
				return url.Values{"market": {"stocks"}, "asset_id": {"1"}, "quantity": {"1"}, "confirm": {"true"}}
			}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t)
			a.seedMarket()
			b, p := a.widgetShop(10, 5)
			sid := a.login(t, "alice", domain.RoleStudent, decimal.NewFromInt(10000))
			s := a.session(t, sid)
			a.backend.OnRequest = func(route string) {
				if route == tc.during {
					s.Logout(context.Background())
				}
			}

			path := tc.path
			if strings.Contains(path, "%d") {
				path = fmt.Sprintf(path, b.ID)
			}
			var form url.Values
			if tc.form != nil {
				form = tc.form(p)
			}

			rec := a.do(tc.method, path, form, sid)
			assert.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
			assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
			assert.Equal(t, 0, a.backend.Calls("POST /api/transactions"))
			assert.Equal(t, 0, a.backend.Calls("POST /api/investments"))
		})
	}
}
