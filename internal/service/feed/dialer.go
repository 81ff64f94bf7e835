package feed

import (
	"context"
	"net/http"
	"time"

	"BrokerConsole/internal/domain/repository"
	"BrokerConsole/pkg/socketio"
)

// SocketDialer opens Socket.IO connections to the broker server. It shares
// the API client's cookie jar so the channel carries the admin session.
type SocketDialer struct {
	baseURL          string
	path             string
	jar              http.CookieJar
	handshakeTimeout time.Duration
}

// NewSocketDialer creates a dialer for baseURL.
func NewSocketDialer(baseURL, path string, jar http.CookieJar, handshakeTimeout time.Duration) *SocketDialer {
	return &SocketDialer{
		baseURL:          baseURL,
		path:             path,
		jar:              jar,
		handshakeTimeout: handshakeTimeout,
	}
}

// Dial implements repository.FeedDialer.
func (d *SocketDialer) Dial(ctx context.Context) (repository.FeedSocket, error) {
	client, err := socketio.Dial(ctx, d.baseURL,
		socketio.WithPath(d.path),
		socketio.WithCookieJar(d.jar),
		socketio.WithHandshakeTimeout(d.handshakeTimeout),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
