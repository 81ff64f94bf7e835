package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"BrokerConsole/internal/domain/models"
	xhttp "BrokerConsole/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", xhttp.NewClient(), nil), srv
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin_login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "admin" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		_, _ = w.Write([]byte(`{"success":true,"message":"Login successful"}`))
	})
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "s1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Login required"}`))
			return
		}
		_, _ = w.Write([]byte(`{"total_users":3,"total_trades":12}`))
	})
	c, _ := newTestServer(t, mux)
	ctx := context.Background()

	_, err := c.Dashboard(ctx)
	require.Error(t, err)
	assert.Equal(t, "Login required", xhttp.ServerMessage(err))

	resp, err := c.AdminLogin(ctx, models.LoginRequest{Username: "admin", Password: "wrong"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid credentials", resp.Message)

	resp, err = c.AdminLogin(ctx, models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stats, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.DashboardStats{TotalUsers: 3, TotalTrades: 12}, stats)
}

func TestLoginServerErrorIsAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin_login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c, _ := newTestServer(t, mux)

	_, err := c.AdminLogin(context.Background(), models.LoginRequest{Username: "a", Password: "b"})
	require.Error(t, err)
	var appErr *xhttp.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestManualTradePayload(t *testing.T) {
	var got map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/manual_trade", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true,"message":"Trade placed. ID=9"}`))
	})
	c, _ := newTestServer(t, mux)

	resp, err := c.ManualTrade(context.Background(), models.ManualTradePayload{
		UserID:          4,
		Symbol:          "SBIN",
		TransactionType: models.Buy,
		Price:           "101.5",
		Exchange:        "NSE",
	})
	require.NoError(t, err)
	assert.Equal(t, "Trade placed. ID=9", resp.Message)

	assert.Equal(t, float64(4), got["user_id"])
	assert.Equal(t, "BUY", got["transaction_type"])
	assert.Equal(t, 101.5, got["price"])
	assert.Equal(t, "NSE", got["exchange"])
}

func TestManualTradeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/manual_trade", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid user_id"}`))
	})
	c, _ := newTestServer(t, mux)

	_, err := c.ManualTrade(context.Background(), models.ManualTradePayload{UserID: 1, Symbol: "X", Price: "1"})
	require.Error(t, err)
	assert.Equal(t, "Invalid user_id", xhttp.ServerMessage(err))
	assert.Contains(t, err.Error(), "/api/manual_trade")
}

func TestUsersAndTrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"username":"alice","broker":"angel"},{"id":2,"username":"bob","broker":"shonnay"}]`))
	})
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":5,"username":"alice","broker":"angel","symbol":"SBIN","quantity":1,
			"transaction_type":"BUY","price":101.25,"timestamp":"2024-10-10T10:10:10.123456","broker_order_id":"ANGEL-1"}]`))
	})
	c, _ := newTestServer(t, mux)
	ctx := context.Background()

	users, err := c.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "shonnay", users[1].Broker)

	trades, err := c.Trades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "101.25", trades[0].Price.String())
	assert.Equal(t, models.Buy, trades[0].TransactionType)
}

func TestBulkRegisterMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bulk_register", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "users.csv", header.Filename)
		assert.Equal(t, "alice,angel,key123,,1\n", string(body))
		_, _ = w.Write([]byte(`{"success":true,"message":"Bulk registered 1 users"}`))
	})
	c, _ := newTestServer(t, mux)

	resp, err := c.BulkRegister(context.Background(), "users.csv", strings.NewReader("alice,angel,key123,,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "Bulk registered 1 users", resp.Message)
}

func TestAdminLogout(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/admin_logout", func(w http.ResponseWriter, r *http.Request) {
		called = r.Method == http.MethodPost
		_, _ = w.Write([]byte(`{"success":true,"message":"Admin logged out"}`))
	})
	c, _ := newTestServer(t, mux)

	require.NoError(t, c.AdminLogout(context.Background()))
	assert.True(t, called)
}
