package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"BrokerConsole/internal/domain/models"
	drepo "BrokerConsole/internal/domain/repository"
	"BrokerConsole/pkg/socketio"

	"github.com/shopspring/decimal"
)

func trade(symbol, price string) models.Trade {
	return models.Trade{Symbol: symbol, Price: decimal.RequireFromString(price)}
}

type fakeSession struct {
	mu      sync.Mutex
	authed  bool
	logins  int
	logouts int
}

func (s *fakeSession) Login(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = true
	s.logins++
}

func (s *fakeSession) Logout(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = false
	s.logouts++
}

func (s *fakeSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

type bulkCall struct {
	filename string
	body     string
}

// fakeAPI answers every BrokerAPI call from its fields and records what it
// was sent.
type fakeAPI struct {
	loginResp *models.LoginResponse
	loginErr  error
	logoutErr error
	logouts   int

	msg       *models.MessageResponse
	err       error
	trades    []models.Trade
	userCalls int

	manual   []models.ManualTradePayload
	register []models.RegisterUserRequest
	bulk     []bulkCall
}

var _ drepo.BrokerAPI = (*fakeAPI)(nil)

func (a *fakeAPI) AdminLogin(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return a.loginResp, a.loginErr
}

func (a *fakeAPI) AdminLogout(context.Context) error {
	a.logouts++
	return a.logoutErr
}

func (a *fakeAPI) Dashboard(context.Context) (*models.DashboardStats, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &models.DashboardStats{TotalUsers: 2, TotalTrades: int64(len(a.trades))}, nil
}

func (a *fakeAPI) Users(context.Context) ([]models.User, error) {
	a.userCalls++
	if a.err != nil {
		return nil, a.err
	}
	return []models.User{{ID: 1, Username: "alice", Broker: "angel"}}, nil
}

func (a *fakeAPI) Trades(context.Context) ([]models.Trade, error) {
	return a.trades, a.err
}

func (a *fakeAPI) ManualTrade(_ context.Context, p models.ManualTradePayload) (*models.MessageResponse, error) {
	a.manual = append(a.manual, p)
	return a.reply()
}

func (a *fakeAPI) RegisterUser(_ context.Context, req models.RegisterUserRequest) (*models.MessageResponse, error) {
	a.register = append(a.register, req)
	return a.reply()
}

func (a *fakeAPI) BulkRegister(_ context.Context, filename string, r io.Reader) (*models.MessageResponse, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	a.bulk = append(a.bulk, bulkCall{filename: filename, body: string(b)})
	return a.reply()
}

func (a *fakeAPI) reply() (*models.MessageResponse, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.msg != nil {
		return a.msg, nil
	}
	return &models.MessageResponse{}, nil
}

type fakeSocket struct {
	mu     sync.Mutex
	closed int

	events chan socketio.Event
	errs   chan error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		events: make(chan socketio.Event, 64),
		errs:   make(chan error, 1),
	}
}

func (s *fakeSocket) Emit(context.Context, string, ...interface{}) error { return nil }
func (s *fakeSocket) Events() <-chan socketio.Event                      { return s.events }
func (s *fakeSocket) Errors() <-chan error                               { return s.errs }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSocket) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSocket) send(name string, payload string) {
	s.events <- socketio.Event{Name: name, Args: []json.RawMessage{json.RawMessage(payload)}}
}

func (s *fakeSocket) fail(err error) {
	s.errs <- err
	close(s.events)
}

// fakeDialer hands out a new socket per dial.
type fakeDialer struct {
	mu      sync.Mutex
	sockets []*fakeSocket
	err     error
}

func (d *fakeDialer) Dial(context.Context) (drepo.FeedSocket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

var errUnreachable = errors.New("dial tcp: connection refused")
