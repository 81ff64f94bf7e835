package usecase

import (
	"context"
	"errors"
	"sync"

	"BrokerConsole/internal/domain/models"
	drepo "BrokerConsole/internal/domain/repository"
	mid "BrokerConsole/internal/middleware"
	"BrokerConsole/internal/service/feed"
	applogger "BrokerConsole/pkg/logger"
	"BrokerConsole/pkg/metrics"
)

// NoticeFeedLost is shown when the feed drops. The chart keeps its last
// contents and there is no reconnect.
const NoticeFeedLost = "Live feed disconnected. Reload the page to reconnect."

// LiveChart creates live chart instances. Every Mount gets its own buffer and
// its own feed connection.
type LiveChart struct {
	dialer      drepo.FeedDialer
	pipeline    *mid.FeedPipeline
	log         *applogger.Logger
	metrics     drepo.Metrics
	bufferLimit int
	hooks       []feed.StateHook
}

// LiveChartOption configures LiveChart.
type LiveChartOption func(*LiveChart)

// WithBufferLimit caps each mounted buffer; 0 keeps every trade.
func WithBufferLimit(n int) LiveChartOption {
	return func(lc *LiveChart) { lc.bufferLimit = n }
}

// WithChartLogger sets the logger.
func WithChartLogger(l *applogger.Logger) LiveChartOption {
	return func(lc *LiveChart) {
		if l != nil {
			lc.log = l
		}
	}
}

// WithChartMetrics sets the metrics sink.
func WithChartMetrics(m drepo.Metrics) LiveChartOption {
	return func(lc *LiveChart) {
		if m != nil {
			lc.metrics = m
		}
	}
}

// WithConnectionHook observes the state transitions of every mounted connection.
func WithConnectionHook(h feed.StateHook) LiveChartOption {
	return func(lc *LiveChart) {
		if h != nil {
			lc.hooks = append(lc.hooks, h)
		}
	}
}

// NewLiveChart creates a LiveChart.
func NewLiveChart(dialer drepo.FeedDialer, pipeline *mid.FeedPipeline, opts ...LiveChartOption) *LiveChart {
	lc := &LiveChart{
		dialer:   dialer,
		pipeline: pipeline,
		log:      applogger.Nop(),
		metrics:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(lc)
	}
	if lc.pipeline == nil {
		lc.pipeline = mid.NewFeedPipeline(mid.WithPipelineLogger(lc.log), mid.WithPipelineMetrics(lc.metrics))
	}
	return lc
}

// Mount opens a fresh connection and starts the consumer. The caller owns the
// result and must Unmount it on every exit path.
func (lc *LiveChart) Mount(ctx context.Context) (*MountedChart, error) {
	connOpts := []feed.Option{feed.WithLogger(lc.log), feed.WithMetrics(lc.metrics)}
	for _, h := range lc.hooks {
		connOpts = append(connOpts, feed.WithStateHook(h))
	}
	conn := feed.NewConnection(lc.dialer, connOpts...)

	if err := conn.Open(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	cctx, cancel := context.WithCancel(context.Background())
	m := &MountedChart{
		conn:     conn,
		pipeline: lc.pipeline,
		buf:      NewTradeBuffer(WithLimit(lc.bufferLimit)),
		log:      lc.log,
		metrics:  lc.metrics,
		frames:   make(chan models.ChartFrame, 1),
		stopped:  make(chan struct{}),
		ctx:      cctx,
		cancel:   cancel,
	}
	lc.metrics.RecordMounted(1)
	m.publish("")

	go m.consume()
	return m, nil
}

// MountedChart is one live chart view instance.
type MountedChart struct {
	conn     *feed.Connection
	pipeline *mid.FeedPipeline
	log      *applogger.Logger
	metrics  drepo.Metrics

	// mu guards buf for Trades; the consumer is the only writer.
	mu  sync.RWMutex
	buf *TradeBuffer

	frames  chan models.ChartFrame
	stopped chan struct{}

	ctx         context.Context
	cancel      context.CancelFunc
	unmountOnce sync.Once
}

// Frames yields the latest chart frame. Intermediate frames may be skipped
// when the reader is slower than the feed; the newest one is always kept.
// The channel is closed when the consumer stops.
func (m *MountedChart) Frames() <-chan models.ChartFrame { return m.frames }

// Done is closed when the consumer stops, either on Unmount or after the
// feed is lost.
func (m *MountedChart) Done() <-chan struct{} { return m.stopped }

// State returns the connection state.
func (m *MountedChart) State() models.ConnState { return m.conn.State() }

// Trades returns a copy of the buffer.
func (m *MountedChart) Trades() []models.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buf.Trades()
}

// Unmount closes the connection and waits for the consumer. Safe to call
// more than once.
func (m *MountedChart) Unmount() {
	m.unmountOnce.Do(func() {
		m.cancel()
		if err := m.conn.Close(); err != nil {
			m.log.Warn("live chart: close feed", applogger.Error(err))
		}
		<-m.stopped
		m.metrics.RecordMounted(-1)
	})
}

func (m *MountedChart) consume() {
	defer close(m.stopped)
	defer close(m.frames)

	for ev := range m.conn.Events() {
		u, err := m.pipeline.Decode(m.ctx, ev)
		if err != nil {
			level := m.log.Warn
			if errors.Is(err, mid.ErrUnknownEvent) {
				level = m.log.Debug
			}
			level("live chart: event skipped", applogger.String("event", ev.Name), applogger.Error(err))
			continue
		}
		m.apply(u)
		m.metrics.RecordFeedEvent(ev.Name)
		m.publish("")
	}

	select {
	case err := <-m.conn.Errors():
		m.log.Warn("live chart: feed lost", applogger.Error(err))
		m.publish(NoticeFeedLost)
	default:
	}
}

func (m *MountedChart) apply(u mid.Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch u.Kind {
	case mid.Snapshot:
		m.buf.ReplaceAll(u.Trades)
	case mid.Append:
		for _, t := range u.Trades {
			m.buf.Append(t)
		}
	}
	m.metrics.RecordBufferSize(m.buf.Len())
}

// publish renders the buffer and replaces any frame the reader has not taken.
func (m *MountedChart) publish(notice string) {
	m.mu.RLock()
	frame := models.ChartFrame{
		State:  m.conn.State(),
		Series: RenderSeries(m.buf.View()),
		Notice: notice,
	}
	m.mu.RUnlock()

	for {
		select {
		case m.frames <- frame:
			return
		default:
			select {
			case <-m.frames:
			default:
			}
		}
	}
}
