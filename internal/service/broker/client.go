package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"BrokerConsole/internal/domain/models"
	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"
)

// Client talks to the broker server's request/response API. The underlying
// HTTP client keeps the server session cookie set by AdminLogin.
type Client struct {
	baseURL string
	http    *xhttp.Client
	log     *applogger.Logger
}

// New creates a Client for baseURL.
func New(baseURL string, httpClient *xhttp.Client, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     l,
	}
}

// AdminLogin posts the admin credentials. A rejection the server explains
// (any status with a JSON success/message body) is returned as a response,
// not an error.
func (c *Client) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	start := time.Now()
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/admin_login"),
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var out models.LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, xhttp.StatusError(resp.StatusCode, body)
		}
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if out.Success && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, xhttp.StatusError(resp.StatusCode, body)
	}

	c.log.Debug("broker api call",
		applogger.String("endpoint", "/admin_login"),
		applogger.Int("status", resp.StatusCode),
		applogger.Duration("latency_ms", time.Since(start)),
	)
	return &out, nil
}

// AdminLogout ends the server-side session.
func (c *Client) AdminLogout(ctx context.Context) error {
	var out models.MessageResponse
	return c.call(ctx, xhttp.MethodPost, "/admin_logout", nil, &out)
}

// Dashboard fetches the dashboard counters.
func (c *Client) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := c.call(ctx, xhttp.MethodGet, "/api/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users lists trading users.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.call(ctx, xhttp.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Trades lists trade history.
func (c *Client) Trades(ctx context.Context) ([]models.Trade, error) {
	var out []models.Trade
	if err := c.call(ctx, xhttp.MethodGet, "/api/trades", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ManualTrade places an order on behalf of a user.
func (c *Client) ManualTrade(ctx context.Context, p models.ManualTradePayload) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.call(ctx, xhttp.MethodPost, "/api/manual_trade", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterUser registers one trading user.
func (c *Client) RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := c.call(ctx, xhttp.MethodPost, "/api/register_user", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkRegister uploads a CSV file as the multipart field "file".
func (c *Client) BulkRegister(ctx context.Context, filename string, csv io.Reader) (*models.MessageResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}

	var out models.MessageResponse
	err = c.send(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url("/api/bulk_register"),
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		Body:    body.Bytes(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, dest interface{}) error {
	return c.send(ctx, &xhttp.RequestOptions{
		Method: method,
		URL:    c.url(path),
		Body:   body,
	}, dest)
}

func (c *Client) send(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	start := time.Now()
	err := c.http.SendAndParse(ctx, opts, dest)
	c.log.Debug("broker api call",
		applogger.String("method", opts.Method),
		applogger.String("url", opts.URL),
		applogger.Duration("latency_ms", time.Since(start)),
		applogger.Bool("ok", err == nil),
	)
	if err != nil {
		return fmt.Errorf("%s %s: %w", opts.Method, strings.TrimPrefix(opts.URL, c.baseURL), err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}
