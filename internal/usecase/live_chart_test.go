package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"BrokerConsole/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *stateLog) hook(from, to models.ConnState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, from.String()+">"+to.String())
}

func (l *stateLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.steps
	l.steps = nil
	return out
}

// waitFrame reads frames until cond holds.
func waitFrame(t *testing.T, m *MountedChart, cond func(models.ChartFrame) bool) models.ChartFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-m.Frames():
			require.True(t, ok, "frames closed before the expected frame")
			if cond(f) {
				return f
			}
		case <-deadline:
			t.Fatal("timed out waiting for frame")
		}
	}
}

func pointCount(n int) func(models.ChartFrame) bool {
	return func(f models.ChartFrame) bool { return len(f.Series.Points) == n }
}

func TestLiveChartSnapshotThenAppends(t *testing.T) {
	dialer := &fakeDialer{}
	lc := NewLiveChart(dialer, nil)

	m, err := lc.Mount(context.Background())
	require.NoError(t, err)
	defer m.Unmount()

	first := waitFrame(t, m, pointCount(0))
	assert.Equal(t, models.Open, first.State)
	assert.Empty(t, first.Notice)

	sock := dialer.socket(0)
	sock.send("initial_trades", `[{"symbol":"A","price":10},{"symbol":"B","price":11}]`)
	sock.send("new_trade", `{"symbol":"C","price":12.5,"broker_order_id":"ANGEL-3","username":"alice","broker":"angel"}`)
	sock.send("new_trade", `{"symbol":"D","price":9}`)

	f := waitFrame(t, m, pointCount(4))
	for i, p := range f.Series.Points {
		assert.Equal(t, i+1, p.X)
	}
	assert.Equal(t, "10", f.Series.Points[0].Y.String())
	assert.Equal(t, "12.5", f.Series.Points[2].Y.String())
	assert.Equal(t, []string{"A", "B", "C", "D"}, symbols(m.Trades()))
}

func TestLiveChartSnapshotOnlyEqualsSnapshot(t *testing.T) {
	dialer := &fakeDialer{}
	m, err := NewLiveChart(dialer, nil).Mount(context.Background())
	require.NoError(t, err)
	defer m.Unmount()

	dialer.socket(0).send("initial_trades", `[
		{"id":7,"symbol":"SBIN","price":101.5,"quantity":2,"transaction_type":"BUY","broker_order_id":"A-7"},
		{"id":7,"symbol":"SBIN","price":101.5,"quantity":2,"transaction_type":"BUY","broker_order_id":"A-7"},
		{"id":9,"symbol":"INFY","price":1450,"quantity":1,"transaction_type":"SELL","broker_order_id":"A-9"}
	]`)

	f := waitFrame(t, m, pointCount(3))
	got := m.Trades()
	require.Len(t, got, 3)

	assert.Equal(t, []string{"SBIN", "SBIN", "INFY"}, symbols(got))
	assert.Equal(t, []int64{7, 7, 9}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "A-9", got[2].BrokerOrderID)
	assert.Equal(t, models.Sell, got[2].TransactionType)
	for i, tr := range got {
		assert.True(t, tr.Price.Equal(f.Series.Points[i].Y))
		assert.Equal(t, i+1, f.Series.Points[i].X)
	}
	assert.Equal(t, "101.5", got[0].Price.String())
	assert.Equal(t, "1450", got[2].Price.String())
}

func TestLiveChartSkipsBadEvents(t *testing.T) {
	dialer := &fakeDialer{}
	m, err := NewLiveChart(dialer, nil).Mount(context.Background())
	require.NoError(t, err)
	defer m.Unmount()

	sock := dialer.socket(0)
	sock.send("new_trade", `{"price":1}`)
	sock.send("server_notice", `"hello"`)
	sock.send("new_trade", `{"symbol":"OK","price":1}`)

	waitFrame(t, m, pointCount(1))
	assert.Equal(t, []string{"OK"}, symbols(m.Trades()))
}

func TestLiveChartUnmountClosesOnce(t *testing.T) {
	dialer := &fakeDialer{}
	states := &stateLog{}
	lc := NewLiveChart(dialer, nil, WithConnectionHook(states.hook))

	m, err := lc.Mount(context.Background())
	require.NoError(t, err)

	sock := dialer.socket(0)
	for i := 0; i < 32; i++ {
		sock.send("new_trade", `{"symbol":"X","price":1}`)
	}

	m.Unmount()
	m.Unmount()

	assert.Equal(t, models.Closed, m.State())
	assert.Equal(t, 1, sock.closeCount())
	select {
	case <-m.Done():
	default:
		t.Fatal("consumer still running after Unmount")
	}

	steps := states.take()
	closed := 0
	for _, s := range steps {
		if s == "Open>Closed" {
			closed++
		}
	}
	assert.Equal(t, 1, closed)
	assert.Equal(t, "Open>Closed", steps[len(steps)-1])
}

func TestLiveChartRemountStartsFresh(t *testing.T) {
	dialer := &fakeDialer{}
	states := &stateLog{}
	lc := NewLiveChart(dialer, nil, WithConnectionHook(states.hook))

	first, err := lc.Mount(context.Background())
	require.NoError(t, err)
	dialer.socket(0).send("initial_trades", `[{"symbol":"A","price":1},{"symbol":"B","price":2}]`)
	waitFrame(t, first, pointCount(2))
	first.Unmount()
	states.take()

	second, err := lc.Mount(context.Background())
	require.NoError(t, err)
	defer second.Unmount()

	assert.Equal(t, []string{"Disconnected>Connecting", "Connecting>Open"}, states.take())
	assert.Empty(t, second.Trades())
	f := waitFrame(t, second, pointCount(0))
	assert.Equal(t, models.Open, f.State)
	assert.Equal(t, 1, dialer.socket(0).closeCount())
	assert.Zero(t, dialer.socket(1).closeCount())
}

func TestLiveChartFeedLost(t *testing.T) {
	dialer := &fakeDialer{}
	m, err := NewLiveChart(dialer, nil).Mount(context.Background())
	require.NoError(t, err)
	defer m.Unmount()

	sock := dialer.socket(0)
	sock.send("initial_trades", `[{"symbol":"A","price":5}]`)
	waitFrame(t, m, pointCount(1))

	sock.fail(errUnreachable)
	f := waitFrame(t, m, func(f models.ChartFrame) bool { return f.Notice != "" })
	assert.Equal(t, NoticeFeedLost, f.Notice)
	assert.Equal(t, models.Disconnected, f.State)
	assert.Len(t, f.Series.Points, 1)

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after feed loss")
	}
	assert.Equal(t, []string{"A"}, symbols(m.Trades()))
}

func TestLiveChartMountDialError(t *testing.T) {
	dialer := &fakeDialer{err: errUnreachable}
	m, err := NewLiveChart(dialer, nil).Mount(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Nil(t, m)
}
