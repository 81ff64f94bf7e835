package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BrokerConsole/internal/domain/models"
	domrepo "BrokerConsole/internal/domain/repository"
	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"
	"BrokerConsole/pkg/metrics"
	"BrokerConsole/pkg/socketio"

	"github.com/shopspring/decimal"
)

const (
	eventInitialTrades = "initial_trades"
	eventNewTrade      = "new_trade"
)

var (
	ErrMalformedPayload = errors.New("feed pipeline: malformed payload")
	ErrUnknownEvent     = errors.New("feed pipeline: unknown event")
)

// UpdateKind says how an update applies to the trade buffer.
type UpdateKind int

const (
	// Snapshot replaces the buffer.
	Snapshot UpdateKind = iota + 1
	// Append adds to the end of the buffer.
	Append
)

// Update is a decoded, validated feed event.
type Update struct {
	Kind   UpdateKind
	Trades []models.Trade
	// Dropped counts snapshot entries rejected by the schema.
	Dropped int
}

// wireTrade is the accepted shape of a trade on the feed. Only symbol and
// price are mandatory; the server omits the other fields on live events.
type wireTrade struct {
	ID              int64               `json:"id"`
	Username        string              `json:"username"`
	Broker          string              `json:"broker"`
	Symbol          string              `json:"symbol" validate:"required,max=64"`
	Quantity        int64               `json:"quantity" validate:"gte=0"`
	TransactionType string              `json:"transaction_type" validate:"omitempty,oneof=BUY SELL"`
	Price           decimal.NullDecimal `json:"price" validate:"required,gte=0"`
	Timestamp       string              `json:"timestamp"`
	BrokerOrderID   string              `json:"broker_order_id"`
}

func (w wireTrade) trade() models.Trade {
	return models.Trade{
		ID:              w.ID,
		Username:        w.Username,
		Broker:          w.Broker,
		Symbol:          w.Symbol,
		Quantity:        w.Quantity,
		TransactionType: models.TransactionType(w.TransactionType),
		Price:           w.Price.Decimal,
		Timestamp:       w.Timestamp,
		BrokerOrderID:   w.BrokerOrderID,
	}
}

// FeedPipeline sits between the feed connection and the trade buffer. It
// checks every payload against the trade schema before anything reaches
// the buffer.
type FeedPipeline struct {
	log     *applogger.Logger
	metrics domrepo.Metrics
}

type PipelineOption func(*FeedPipeline)

// WithPipelineLogger sets the logger for rejected payloads.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *FeedPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPipelineMetrics sets the metrics sink.
func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *FeedPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewFeedPipeline creates a new pipeline.
func NewFeedPipeline(opts ...PipelineOption) *FeedPipeline {
	p := &FeedPipeline{
		log:     applogger.Nop(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decode turns a feed event into a buffer update.
func (p *FeedPipeline) Decode(ctx context.Context, ev socketio.Event) (Update, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordLatency("pipeline_decode", time.Since(start).Seconds())
	}()

	switch ev.Name {
	case eventInitialTrades:
		return p.snapshot(ctx, ev)
	case eventNewTrade:
		return p.single(ctx, ev)
	default:
		return Update{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Name)
	}
}

func (p *FeedPipeline) snapshot(ctx context.Context, ev socketio.Event) (Update, error) {
	if len(ev.Args) == 0 {
		p.metrics.RecordError("pipeline_validate")
		return Update{}, fmt.Errorf("%w: %s without payload", ErrMalformedPayload, ev.Name)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(ev.Args[0], &raw); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return Update{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, ev.Name, err)
	}
	if raw == nil {
		// null decodes without error but is not a snapshot
		p.metrics.RecordError("pipeline_validate")
		return Update{}, fmt.Errorf("%w: %s: null payload", ErrMalformedPayload, ev.Name)
	}

	u := Update{Kind: Snapshot, Trades: make([]models.Trade, 0, len(raw))}
	for i, item := range raw {
		t, err := p.decodeTrade(ctx, item)
		if err != nil {
			u.Dropped++
			p.metrics.RecordError("pipeline_validate")
			p.log.Warn("feed pipeline: snapshot entry dropped",
				applogger.Int("index", i),
				applogger.Error(err),
			)
			continue
		}
		u.Trades = append(u.Trades, t)
	}
	return u, nil
}

func (p *FeedPipeline) single(ctx context.Context, ev socketio.Event) (Update, error) {
	if len(ev.Args) == 0 {
		p.metrics.RecordError("pipeline_validate")
		return Update{}, fmt.Errorf("%w: %s without payload", ErrMalformedPayload, ev.Name)
	}
	t, err := p.decodeTrade(ctx, ev.Args[0])
	if err != nil {
		p.metrics.RecordError("pipeline_validate")
		return Update{}, fmt.Errorf("%s: %w", ev.Name, err)
	}
	return Update{Kind: Append, Trades: []models.Trade{t}}, nil
}

func (p *FeedPipeline) decodeTrade(ctx context.Context, raw json.RawMessage) (models.Trade, error) {
	var w wireTrade
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Trade{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := xhttp.ValidateStruct(ctx, &w); err != nil {
		if details := xhttp.ValidationErrors(err); len(details) > 0 {
			return models.Trade{}, fmt.Errorf("%w: %s", ErrMalformedPayload, details[0].Message)
		}
		return models.Trade{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return w.trade(), nil
}
