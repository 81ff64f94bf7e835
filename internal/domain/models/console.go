package models

import "encoding/json"

// User is a registered trading account as listed by the broker server.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Broker   string `json:"broker"`
}

// DashboardStats holds the dashboard counters.
type DashboardStats struct {
	TotalUsers  int64 `json:"total_users"`
	TotalTrades int64 `json:"total_trades"`
}

// LoginRequest is the admin login form and API payload.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse is the server's answer to an admin login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the common body of CRUD endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ManualTradeForm is the order entry form. Price stays a string until it is
// validated so the form can be re-rendered with what the operator typed.
type ManualTradeForm struct {
	UserID          int64  `form:"user_id" validate:"required,gt=0"`
	Symbol          string `form:"symbol" validate:"required,max=32"`
	TransactionType string `form:"transaction_type" default:"BUY" validate:"oneof=BUY SELL"`
	Price           string `form:"price" validate:"required,numeric"`
	Exchange        string `form:"exchange" default:"NSE" validate:"required"`
}

// ManualTradePayload is the body of POST /api/manual_trade.
type ManualTradePayload struct {
	UserID          int64           `json:"user_id"`
	Symbol          string          `json:"symbol"`
	TransactionType TransactionType `json:"transaction_type"`
	Price           json.Number     `json:"price"`
	Exchange        string          `json:"exchange"`
}

// RegisterUserRequest is the single user registration form and API payload.
type RegisterUserRequest struct {
	Username        string `json:"username" form:"username" validate:"required,min=2,max=64"`
	Broker          string `json:"broker" form:"broker" default:"angel" validate:"oneof=angel shonnay"`
	APIKey          string `json:"api_key" form:"api_key" validate:"required,min=5,max=128"`
	TOTPToken       string `json:"totp_token" form:"totp_token" validate:"max=64"`
	DefaultQuantity int    `json:"default_quantity" form:"default_quantity" default:"1" validate:"gte=1"`
}

// Brokers lists the broker integrations the server supports.
var Brokers = []string{"angel", "shonnay"}
