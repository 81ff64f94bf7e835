package repository

import (
	"context"
	"io"

	"BrokerConsole/internal/domain/models"
	"BrokerConsole/pkg/socketio"
)

// FeedSocket is one open real-time channel to the broker server.
type FeedSocket interface {
	Emit(ctx context.Context, event string, args ...interface{}) error
	// Events is closed when the socket stops reading.
	Events() <-chan socketio.Event
	// Errors yields at most one terminal transport error.
	Errors() <-chan error
	Close() error
}

// FeedDialer opens feed sockets.
type FeedDialer interface {
	Dial(ctx context.Context) (FeedSocket, error)
}

// BrokerAPI is the request/response surface of the broker server.
type BrokerAPI interface {
	AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	AdminLogout(ctx context.Context) error
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
	Users(ctx context.Context) ([]models.User, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	ManualTrade(ctx context.Context, p models.ManualTradePayload) (*models.MessageResponse, error)
	RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.MessageResponse, error)
	BulkRegister(ctx context.Context, filename string, csv io.Reader) (*models.MessageResponse, error)
}

// SessionStore is the admin session flag.
type SessionStore interface {
	Login(ctx context.Context)
	Logout(ctx context.Context)
	IsAuthenticated() bool
}

type Metrics interface {
	RecordFeedEvent(event string)
	RecordError(kind string)
	RecordConnState(from, to string)
	RecordBufferSize(n int)
	RecordMounted(delta int)
	RecordLatency(op string, seconds float64)
}
