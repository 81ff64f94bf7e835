package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second

	eventBuffer = 64
)

var (
	ErrNotConnected   = errors.New("socketio: not connected")
	ErrServerClosed   = errors.New("socketio: closed by server")
	ErrConnectRefused = errors.New("socketio: namespace connect refused")
)

// Option configures Dial.
type Option func(*options)

type options struct {
	path             string
	jar              http.CookieJar
	handshakeTimeout time.Duration
}

// WithPath sets the Engine.IO endpoint path (default "/socket.io/").
func WithPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.path = path
		}
	}
}

// WithCookieJar sends and stores cookies for the websocket handshake.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) { o.jar = jar }
}

// WithHandshakeTimeout bounds the websocket upgrade plus the Engine.IO/Socket.IO handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// Client is a Socket.IO v5 client over the Engine.IO v4 websocket transport,
// attached to the default namespace. Events are delivered in the order the
// server sent them; a slow reader applies backpressure instead of dropping.
type Client struct {
	conn *websocket.Conn
	sid  string

	pingInterval time.Duration
	pingTimeout  time.Duration

	writeMu sync.Mutex

	events chan Event
	errs   chan error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Endpoint converts a server base address into the websocket transport URL.
func Endpoint(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path == "" {
		path = "/socket.io/"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}

// Dial opens the websocket, completes the Engine.IO open handshake and connects
// to the default namespace. The returned client is already reading.
func Dial(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	o := &options{
		path:             "/socket.io/",
		handshakeTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	endpoint, err := Endpoint(baseURL, o.path)
	if err != nil {
		return nil, fmt.Errorf("socketio: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: o.handshakeTimeout,
		Jar:              o.jar,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("socketio: dial: %w", err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	if err := c.handshake(ctx, o.handshakeTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

// SID returns the Engine.IO session id assigned by the server.
func (c *Client) SID() string { return c.sid }

// Events delivers server events. It is closed when the client stops reading.
func (c *Client) Events() <-chan Event { return c.events }

// Errors reports at most one terminal transport error. Closing the client
// yourself does not produce one.
func (c *Client) Errors() <-chan error { return c.errs }

// Emit sends an event on the default namespace.
func (c *Client) Emit(ctx context.Context, event string, args ...interface{}) error {
	select {
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	frame, err := EncodeEvent(event, args...)
	if err != nil {
		return err
	}
	if err := c.write(frame); err != nil {
		return fmt.Errorf("socketio: emit %s: %w", event, err)
	}
	return nil
}

// Close disconnects from the namespace and closes the websocket. Safe to call
// more than once; only the first call does anything.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.write(encodeControl(PacketDisconnect))
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}

func (c *Client) handshake(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	// Cancelling ctx expires the read deadline so a pending read returns now.
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return readErr(ctx, "read open", err)
	}
	t, data, err := splitEngine(frame)
	if err != nil {
		return err
	}
	if t != engineOpen {
		return fmt.Errorf("%w: expected open, got %q", ErrMalformedPacket, t)
	}
	var open openPayload
	if err := json.Unmarshal(data, &open); err != nil {
		return fmt.Errorf("%w: open payload: %v", ErrMalformedPacket, err)
	}
	c.sid = open.SID
	c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond
	if c.pingInterval <= 0 {
		c.pingInterval = defaultPingInterval
	}
	if c.pingTimeout <= 0 {
		c.pingTimeout = defaultPingTimeout
	}

	if err := c.write(encodeControl(PacketConnect)); err != nil {
		return fmt.Errorf("socketio: connect namespace: %w", err)
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return readErr(ctx, "read connect ack", err)
		}
		t, data, err := splitEngine(frame)
		if err != nil {
			continue
		}
		switch t {
		case enginePing:
			if err := c.write(append([]byte{enginePong}, data...)); err != nil {
				return fmt.Errorf("socketio: pong: %w", err)
			}
		case engineClose:
			return ErrServerClosed
		case engineMessage:
			p, err := DecodePacket(data)
			if err != nil || p.Namespace != "/" {
				continue
			}
			switch p.Type {
			case PacketConnect:
				return nil
			case PacketConnectError:
				return fmt.Errorf("%w: %s", ErrConnectRefused, string(p.Data))
			}
		}
	}
}

// readErr prefers the context error when a handshake read was cut short by
// cancellation.
func readErr(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("socketio: %s: %w", step, ctxErr)
	}
	return fmt.Errorf("socketio: %s: %w", step, err)
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("socketio: read: %w", err))
			return
		}
		t, data, err := splitEngine(frame)
		if err != nil {
			continue
		}

		switch t {
		case enginePing:
			if err := c.write(append([]byte{enginePong}, data...)); err != nil {
				c.fail(fmt.Errorf("socketio: pong: %w", err))
				return
			}
		case engineClose:
			c.fail(ErrServerClosed)
			return
		case engineMessage:
			p, err := DecodePacket(data)
			if err != nil || p.Namespace != "/" {
				continue
			}
			switch p.Type {
			case PacketEvent:
				ev, err := DecodeEvent(p)
				if err != nil {
					continue
				}
				select {
				case c.events <- ev:
				case <-c.done:
					return
				}
			case PacketDisconnect:
				c.fail(ErrServerClosed)
				return
			}
		}
	}
}

func (c *Client) fail(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.errs <- err:
	default:
	}
}

func (c *Client) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}
