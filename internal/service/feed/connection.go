package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"BrokerConsole/internal/domain/models"
	"BrokerConsole/internal/domain/repository"
	applogger "BrokerConsole/pkg/logger"
	"BrokerConsole/pkg/metrics"
	"BrokerConsole/pkg/socketio"
)

// Feed event names.
const (
	EventRequestTrades = "request_trades"
	EventInitialTrades = "initial_trades"
	EventNewTrade      = "new_trade"
)

var (
	ErrClosed      = errors.New("feed: connection closed")
	ErrAlreadyUsed = errors.New("feed: connection already used")
)

// StateHook observes state transitions. Hooks run synchronously while the
// connection lock is held and must not call back into the connection.
type StateHook func(from, to models.ConnState)

// Connection is one real-time channel to the broker server, owned by a single
// live chart. It is used once: Disconnected -> Connecting -> Open -> Closed.
// A transport failure moves Open to Disconnected; there is no reconnect.
type Connection struct {
	dialer  repository.FeedDialer
	log     *applogger.Logger
	metrics repository.Metrics

	mu    sync.Mutex
	state models.ConnState
	sock  repository.FeedSocket
	hooks []StateHook

	events chan socketio.Event
	errs   chan error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures Connection.
type Option func(*Connection)

// WithLogger sets the connection logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m repository.Metrics) Option {
	return func(c *Connection) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithStateHook registers a transition observer.
func WithStateHook(h StateHook) Option {
	return func(c *Connection) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// NewConnection creates a Disconnected connection.
func NewConnection(dialer repository.FeedDialer, opts ...Option) *Connection {
	c := &Connection{
		dialer:  dialer,
		log:     applogger.Nop(),
		metrics: metrics.Nop{},
		state:   models.Disconnected,
		events:  make(chan socketio.Event),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.RecordConnState("", c.state.String())
	return c
}

// Open dials the server and requests the trade snapshot. Events are available
// on Events once Open returns nil.
func (c *Connection) Open(ctx context.Context) error {
	if !c.transition(models.Disconnected, models.Connecting) {
		if c.State() == models.Closed {
			return ErrClosed
		}
		return ErrAlreadyUsed
	}

	// Close aborts a dial that is still in flight.
	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()
	go func() {
		select {
		case <-c.done:
			cancelDial()
		case <-dialCtx.Done():
		}
	}()

	sock, err := c.dialer.Dial(dialCtx)
	if err != nil {
		if !c.transition(models.Connecting, models.Disconnected) {
			return ErrClosed
		}
		c.metrics.RecordError("feed_dial")
		return fmt.Errorf("feed: dial: %w", err)
	}

	c.mu.Lock()
	if c.state != models.Connecting {
		// closed while dialing
		c.mu.Unlock()
		_ = sock.Close()
		return ErrClosed
	}
	c.sock = sock
	c.setStateLocked(models.Open)
	c.mu.Unlock()

	if err := sock.Emit(ctx, EventRequestTrades); err != nil {
		c.metrics.RecordError("feed_emit")
		_ = sock.Close()
		c.transition(models.Open, models.Disconnected)
		return fmt.Errorf("feed: %s: %w", EventRequestTrades, err)
	}

	c.mu.Lock()
	if c.state == models.Closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.pump(sock)
	return nil
}

// Events delivers server events in transport order. It is closed when the
// connection stops reading.
func (c *Connection) Events() <-chan socketio.Event { return c.events }

// Errors reports the transport failure that ended an open connection, if any.
func (c *Connection) Errors() <-chan error { return c.errs }

// State returns the current state.
func (c *Connection) State() models.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close releases the channel. Only the first call has any effect; the
// connection reaches Closed exactly once whatever its state.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		sock := c.sock
		c.setStateLocked(models.Closed)
		c.mu.Unlock()

		close(c.done)
		if sock != nil {
			err = sock.Close()
		}
		c.wg.Wait()
	})
	return err
}

func (c *Connection) pump(sock repository.FeedSocket) {
	defer c.wg.Done()
	defer close(c.events)

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-sock.Events():
			if !ok {
				c.lost(sock)
				return
			}
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Connection) lost(sock repository.FeedSocket) {
	var err error
	select {
	case err = <-sock.Errors():
	default:
	}
	if err == nil {
		err = socketio.ErrServerClosed
	}
	if !c.transition(models.Open, models.Disconnected) {
		return
	}
	c.metrics.RecordError("feed_transport")
	c.log.Warn("feed: connection lost", applogger.Error(err))
	c.errs <- err
}

func (c *Connection) transition(from, to models.ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.setStateLocked(to)
	return true
}

func (c *Connection) setStateLocked(to models.ConnState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.metrics.RecordConnState(from.String(), to.String())
	c.log.Debug("feed: state", applogger.String("from", from.String()), applogger.String("to", to.String()))
	for _, h := range c.hooks {
		h(from, to)
	}
}
