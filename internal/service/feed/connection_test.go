package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"BrokerConsole/internal/domain/models"
	"BrokerConsole/internal/domain/repository"
	"BrokerConsole/pkg/socketio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	mu      sync.Mutex
	emitted []string
	closed  int
	emitErr error

	events chan socketio.Event
	errs   chan error
}

func newFakeSocket(buffer int) *fakeSocket {
	return &fakeSocket{
		events: make(chan socketio.Event, buffer),
		errs:   make(chan error, 1),
	}
}

func (s *fakeSocket) Emit(_ context.Context, event string, _ ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitErr != nil {
		return s.emitErr
	}
	s.emitted = append(s.emitted, event)
	return nil
}

func (s *fakeSocket) Events() <-chan socketio.Event { return s.events }
func (s *fakeSocket) Errors() <-chan error          { return s.errs }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSocket) fail(err error) {
	s.errs <- err
	close(s.events)
}

func (s *fakeSocket) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDialer struct {
	sock *fakeSocket
	err  error
}

func (d *fakeDialer) Dial(context.Context) (repository.FeedSocket, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.sock, nil
}

type transitions struct {
	mu  sync.Mutex
	got [][2]models.ConnState
}

func (r *transitions) hook(from, to models.ConnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, [2]models.ConnState{from, to})
}

func (r *transitions) list() [][2]models.ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]models.ConnState(nil), r.got...)
}

func (r *transitions) count(to models.ConnState) int {
	n := 0
	for _, tr := range r.list() {
		if tr[1] == to {
			n++
		}
	}
	return n
}

func event(name string) socketio.Event {
	return socketio.Event{Name: name, Args: []json.RawMessage{json.RawMessage(`{}`)}}
}

func TestOpenRequestsSnapshot(t *testing.T) {
	sock := newFakeSocket(0)
	rec := &transitions{}
	conn := NewConnection(&fakeDialer{sock: sock}, WithStateHook(rec.hook))
	assert.Equal(t, models.Disconnected, conn.State())

	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	assert.Equal(t, models.Open, conn.State())
	assert.Equal(t, [][2]models.ConnState{
		{models.Disconnected, models.Connecting},
		{models.Connecting, models.Open},
	}, rec.list())
	assert.Equal(t, []string{EventRequestTrades}, sock.emitted)
}

func TestEventsKeepTransportOrder(t *testing.T) {
	sock := newFakeSocket(8)
	conn := NewConnection(&fakeDialer{sock: sock})
	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	names := []string{EventInitialTrades, EventNewTrade, "other", EventNewTrade}
	for _, n := range names {
		sock.events <- event(n)
	}

	for _, want := range names {
		select {
		case ev := <-conn.Events():
			assert.Equal(t, want, ev.Name)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestCloseReachesClosedExactlyOnce(t *testing.T) {
	sock := newFakeSocket(16)
	rec := &transitions{}
	conn := NewConnection(&fakeDialer{sock: sock}, WithStateHook(rec.hook))
	require.NoError(t, conn.Open(context.Background()))

	// nobody drains these
	for i := 0; i < 10; i++ {
		sock.events <- event(EventNewTrade)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Close()
		}()
	}
	wg.Wait()
	require.NoError(t, conn.Close())

	assert.Equal(t, models.Closed, conn.State())
	assert.Equal(t, 1, rec.count(models.Closed))
	assert.Equal(t, 1, sock.closeCount())

	// Events is closed once the pump has stopped
	for range conn.Events() {
	}
}

func TestTransportFailureDisconnects(t *testing.T) {
	sock := newFakeSocket(0)
	conn := NewConnection(&fakeDialer{sock: sock})
	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	boom := errors.New("connection reset")
	sock.fail(boom)

	select {
	case err := <-conn.Errors():
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("expected transport error")
	}
	_, ok := <-conn.Events()
	assert.False(t, ok)
	assert.Equal(t, models.Disconnected, conn.State())

	require.NoError(t, conn.Close())
	assert.Equal(t, models.Closed, conn.State())
}

func TestDialFailure(t *testing.T) {
	rec := &transitions{}
	conn := NewConnection(&fakeDialer{err: errors.New("refused")}, WithStateHook(rec.hook))

	err := conn.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, models.Disconnected, conn.State())
	assert.Equal(t, [][2]models.ConnState{
		{models.Disconnected, models.Connecting},
		{models.Connecting, models.Disconnected},
	}, rec.list())
}

func TestEmitFailureClosesSocket(t *testing.T) {
	sock := newFakeSocket(0)
	sock.emitErr = socketio.ErrNotConnected
	conn := NewConnection(&fakeDialer{sock: sock})

	err := conn.Open(context.Background())
	assert.ErrorIs(t, err, socketio.ErrNotConnected)
	assert.Equal(t, models.Disconnected, conn.State())
	assert.Equal(t, 1, sock.closeCount())
}

func TestOpenAfterClose(t *testing.T) {
	conn := NewConnection(&fakeDialer{sock: newFakeSocket(0)})
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Open(context.Background()), ErrClosed)
	assert.Equal(t, models.Closed, conn.State())
}

func TestOpenTwice(t *testing.T) {
	conn := NewConnection(&fakeDialer{sock: newFakeSocket(0)})
	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()

	assert.ErrorIs(t, conn.Open(context.Background()), ErrAlreadyUsed)
}

type blockingDialer struct{}

func (blockingDialer) Dial(ctx context.Context) (repository.FeedSocket, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestOpenCancelledWhileConnecting(t *testing.T) {
	c := NewConnection(blockingDialer{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := c.Open(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.Disconnected, c.State())
	assert.NoError(t, c.Close())
	assert.Equal(t, models.Closed, c.State())
}

func TestCloseAbortsDial(t *testing.T) {
	c := NewConnection(blockingDialer{})
	opened := make(chan error, 1)
	go func() { opened <- c.Open(context.Background()) }()

	require.Eventually(t, func() bool { return c.State() == models.Connecting }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-opened:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Open still blocked after Close")
	}
	assert.Equal(t, models.Closed, c.State())
}
