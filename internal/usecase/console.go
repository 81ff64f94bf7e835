package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"BrokerConsole/internal/domain/models"
	drepo "BrokerConsole/internal/domain/repository"
	"BrokerConsole/pkg/cache"
	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	NoticeTradePlaced     = "Trade placed successfully!"
	NoticeTradeError      = "Error placing trade"
	NoticeInvalidPrice    = "Price must be a number greater than 0"
	NoticeUserRegistered  = "User registered"
	NoticeRegisterError   = "Error registering user"
	NoticeSelectCSV       = "Please select a CSV file."
	NoticeBulkRegistered  = "Bulk register success"
	NoticeBulkUploadError = "Error in bulk upload"
)

// bulkColumns is the column order the server expects in a bulk upload.
var bulkColumns = []string{"username", "broker", "api_key", "totp_token", "default_quantity"}

var ErrInvalidCSV = errors.New("invalid csv")

const usersCacheKey = "console:users"

// Console wraps the request/response operations of the console views and
// turns their outcome into operator notices.
type Console struct {
	api drepo.BrokerAPI
	log *applogger.Logger

	users    cache.Store
	usersTTL time.Duration
}

// ConsoleOption configures Console.
type ConsoleOption func(*Console)

// WithUsersCache keeps the user list for ttl. Registrations drop it.
func WithUsersCache(store cache.Store, ttl time.Duration) ConsoleOption {
	return func(c *Console) {
		if store != nil && ttl > 0 {
			c.users = store
			c.usersTTL = ttl
		}
	}
}

// NewConsole creates a Console.
func NewConsole(api drepo.BrokerAPI, l *applogger.Logger, opts ...ConsoleOption) *Console {
	if l == nil {
		l = applogger.Nop()
	}
	c := &Console{api: api, log: l}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dashboard returns the dashboard counters.
func (c *Console) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := c.api.Dashboard(ctx)
	if err != nil {
		c.log.Error("fetch dashboard", applogger.Error(err))
		return nil, err
	}
	return stats, nil
}

// Users lists registered trading users.
func (c *Console) Users(ctx context.Context) ([]models.User, error) {
	if users, ok := c.cachedUsers(ctx); ok {
		return users, nil
	}
	users, err := c.api.Users(ctx)
	if err != nil {
		c.log.Error("fetch users", applogger.Error(err))
		return nil, err
	}
	if c.users != nil {
		if b, err := json.Marshal(users); err == nil {
			if err := c.users.Set(ctx, usersCacheKey, string(b), c.usersTTL); err != nil {
				c.log.Warn("cache users", applogger.Error(err))
			}
		}
	}
	return users, nil
}

func (c *Console) cachedUsers(ctx context.Context) ([]models.User, bool) {
	if c.users == nil {
		return nil, false
	}
	var raw string
	if err := c.users.Get(ctx, usersCacheKey, &raw); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.log.Warn("read cached users", applogger.Error(err))
		}
		return nil, false
	}
	var users []models.User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, false
	}
	return users, true
}

func (c *Console) forgetUsers(ctx context.Context) {
	if c.users == nil {
		return
	}
	if err := c.users.Delete(ctx, usersCacheKey); err != nil {
		c.log.Warn("drop cached users", applogger.Error(err))
	}
}

// Trades lists trade history.
func (c *Console) Trades(ctx context.Context) ([]models.Trade, error) {
	trades, err := c.api.Trades(ctx)
	if err != nil {
		c.log.Error("fetch trades", applogger.Error(err))
		return nil, err
	}
	return trades, nil
}

// PlaceOrder submits a validated manual order form.
func (c *Console) PlaceOrder(ctx context.Context, form models.ManualTradeForm) (ok bool, notice string) {
	side, err := models.ParseTransactionType(form.TransactionType)
	if err != nil {
		return false, NoticeTradeError
	}
	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil || !price.IsPositive() {
		return false, NoticeInvalidPrice
	}
	resp, err := c.api.ManualTrade(ctx, models.ManualTradePayload{
		UserID:          form.UserID,
		Symbol:          strings.ToUpper(strings.TrimSpace(form.Symbol)),
		TransactionType: side,
		Price:           json.Number(price.String()),
		Exchange:        form.Exchange,
	})
	if err != nil {
		c.log.Error("place order", applogger.Int64("user_id", form.UserID), applogger.Error(err))
		return false, withReason(NoticeTradeError, err)
	}
	return true, orDefault(resp.Message, NoticeTradePlaced)
}

// RegisterUser registers one trading user.
func (c *Console) RegisterUser(ctx context.Context, req models.RegisterUserRequest) (ok bool, notice string) {
	resp, err := c.api.RegisterUser(ctx, req)
	if err != nil {
		c.log.Error("register user", applogger.String("username", req.Username), applogger.Error(err))
		return false, withReason(NoticeRegisterError, err)
	}
	c.forgetUsers(ctx)
	return true, orDefault(resp.Message, NoticeUserRegistered)
}

// BulkRegister checks a CSV upload and forwards it. A header row, if present,
// is removed because the server would treat it as a user.
func (c *Console) BulkRegister(ctx context.Context, filename string, r io.Reader) (ok bool, notice string) {
	if r == nil || filename == "" {
		return false, NoticeSelectCSV
	}
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return false, NoticeSelectCSV
	}

	body, rows, err := normalizeBulkCSV(r)
	if err != nil {
		c.log.Warn("bulk upload rejected", applogger.String("file", filename), applogger.Error(err))
		return false, fmt.Sprintf("%s: %v", NoticeBulkUploadError, err)
	}

	resp, err := c.api.BulkRegister(ctx, filename, bytes.NewReader(body))
	if err != nil {
		c.log.Error("bulk upload", applogger.String("file", filename), applogger.Int("rows", rows), applogger.Error(err))
		return false, withReason(NoticeBulkUploadError, err)
	}
	c.forgetUsers(ctx)
	return true, orDefault(resp.Message, NoticeBulkRegistered)
}

func normalizeBulkCSV(r io.Reader) ([]byte, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(records) > 0 && isBulkHeader(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("%w: no rows", ErrInvalidCSV)
	}
	for i, rec := range records {
		if len(rec) != len(bulkColumns) {
			return nil, 0, fmt.Errorf("%w: row %d has %d fields, want %d (%s)",
				ErrInvalidCSV, i+1, len(rec), len(bulkColumns), strings.Join(bulkColumns, ","))
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	return buf.Bytes(), len(records), nil
}

func isBulkHeader(rec []string) bool {
	if len(rec) != len(bulkColumns) {
		return false
	}
	for i, col := range bulkColumns {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), col) {
			return false
		}
	}
	return true
}

// withReason appends the server's explanation of a failed call, if it gave one.
func withReason(notice string, err error) string {
	if msg := xhttp.ServerMessage(err); msg != "" {
		return notice + ": " + msg
	}
	return notice
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
