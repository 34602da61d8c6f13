package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrepreneursim/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestLoginSendsCredentialsWithoutBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)

		fmt.Fprint(w, `{"token":"tok","user":{"id":7,"username":"alice","role":"student","balance":10000}}`)
	})

	resp, err := client.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, int64(7), resp.User.ID)
	assert.True(t, resp.User.Balance.Equal(decimal.NewFromInt(10000)))
}

func TestBoundClientSendsBearerAndRequestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		fmt.Fprint(w, `{"balance":"1234.50"}`)
	})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	balance, err := client.WithCredential("secret").Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1234.5", balance.String())
	assert.Empty(t, client.Credential(), "binding must not mutate the base client")
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Insufficient stock"}`)
	})

	_, err := client.Purchase(context.Background(), PurchaseRequest{ProductID: 1, Quantity: 2})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Insufficient stock", UserMessage(err, "Purchase failed"))
	assert.False(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Profile(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, "Login failed", UserMessage(err, "Login failed"))
}

func TestUserMessageFallsBackOnTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.Businesses(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Registration failed", UserMessage(err, "Registration failed"))
}

func TestLoginRejectsIncompleteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":""}`)
	})

	_, err := client.Login(context.Background(), LoginRequest{Username: "a", Password: "b"})
	assert.Error(t, err)
}

func TestCreateBusinessUsesLogoColorKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.Equal(t, "#10B981", raw["logoColor"])
		fmt.Fprint(w, `{"id":42,"name":"Bean There","revenue":0}`)
	})

	business, err := client.WithCredential("t").CreateBusiness(context.Background(), CreateBusinessRequest{
		Name: "Bean There", Industry: "Food & Beverage", LogoColor: "#10B981",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), business.ID)
}

func TestEventsStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: new_business\ndata: {\"id\":3}\n\ndata: plain text\n\n")
	})

	stream, err := client.Events(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	evt, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, domain.EventNewBusiness, evt.Name)
	assert.JSONEq(t, `{"id":3}`, string(evt.Data))

	evt, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", evt.Name)
	assert.JSONEq(t, `"plain text"`, string(evt.Data))

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventsRejectsNonOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Events(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestMyTransactionsAcceptsSQLTimestamps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/my-transactions", r.URL.Path)
		fmt.Fprint(w, `[
			{"id":1,"product_name":"Widget","quantity":1,"amount":"10","created_at":"2024-01-15 10:30:00"},
			{"id":2,"product_name":"Gadget","quantity":2,"amount":"20","created_at":"2024-01-16T08:00:00.123Z"},
			{"id":3,"product_name":"Gizmo","quantity":3,"amount":"30","created_at":"2024-01-17"}
		]`)
	})

	txs, err := client.WithCredential("secret").MyTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), txs[0].CreatedAt.Time)
	assert.Equal(t, time.Date(2024, 1, 16, 8, 0, 0, 123000000, time.UTC), txs[1].CreatedAt.UTC())
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), txs[2].CreatedAt.Time)
}
