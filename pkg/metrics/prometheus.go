package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	feedEvents  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	connState   *prometheus.GaugeVec
	bufferSize  prometheus.Gauge
	liveCharts  prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		feedEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerconsole_feed_events_total",
				Help: "Total number of feed events applied to a live chart",
			},
			[]string{"event"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brokerconsole_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		connState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "brokerconsole_feed_connections",
				Help: "Feed connections currently in each state",
			},
			[]string{"state"},
		),
		bufferSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "brokerconsole_trade_buffer_size",
				Help: "Trades held by the most recently updated live chart",
			},
		),
		liveCharts: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "brokerconsole_live_charts",
				Help: "Live chart views currently mounted",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brokerconsole_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFeedEvent counts one applied feed event.
func (r *Recorder) RecordFeedEvent(event string) {
	r.feedEvents.WithLabelValues(event).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordConnState moves one connection from one state gauge to another. An
// empty from only increments; Closed connections are no longer counted.
func (r *Recorder) RecordConnState(from, to string) {
	if from != "" {
		r.connState.WithLabelValues(from).Dec()
	}
	if to != "Closed" {
		r.connState.WithLabelValues(to).Inc()
	}
}

// RecordBufferSize records the current trade buffer length.
func (r *Recorder) RecordBufferSize(n int) {
	r.bufferSize.Set(float64(n))
}

// RecordMounted tracks live chart mounts (+1) and unmounts (-1).
func (r *Recorder) RecordMounted(delta int) {
	r.liveCharts.Add(float64(delta))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFeedEvent(string)         {}
func (Nop) RecordError(string)             {}
func (Nop) RecordConnState(string, string) {}
func (Nop) RecordBufferSize(int)           {}
func (Nop) RecordMounted(int)              {}
func (Nop) RecordLatency(string, float64)  {}
