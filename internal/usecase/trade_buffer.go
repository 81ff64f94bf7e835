package usecase

import "BrokerConsole/internal/domain/models"

// TradeBuffer is the ordered trades behind a live chart: insertion order is
// arrival order and entries are never modified. It is owned by one goroutine
// and is not safe for concurrent use.
type TradeBuffer struct {
	trades []models.Trade
	limit  int
}

// BufferOption configures TradeBuffer.
type BufferOption func(*TradeBuffer)

// WithLimit keeps only the newest n trades. n <= 0 keeps everything, which is
// the default.
func WithLimit(n int) BufferOption {
	return func(b *TradeBuffer) {
		if n > 0 {
			b.limit = n
		}
	}
}

// NewTradeBuffer creates an empty buffer.
func NewTradeBuffer(opts ...BufferOption) *TradeBuffer {
	b := &TradeBuffer{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ReplaceAll discards the current contents and takes seq in order.
func (b *TradeBuffer) ReplaceAll(seq []models.Trade) {
	if b.limit > 0 && len(seq) > b.limit {
		seq = seq[len(seq)-b.limit:]
	}
	b.trades = append(make([]models.Trade, 0, len(seq)), seq...)
}

// Append adds t at the end.
func (b *TradeBuffer) Append(t models.Trade) {
	if b.limit > 0 && len(b.trades) >= b.limit {
		n := copy(b.trades, b.trades[len(b.trades)-b.limit+1:])
		b.trades = b.trades[:n]
	}
	b.trades = append(b.trades, t)
}

// Len returns the number of trades held.
func (b *TradeBuffer) Len() int { return len(b.trades) }

// Trades returns a copy of the contents in order.
func (b *TradeBuffer) Trades() []models.Trade {
	return append([]models.Trade(nil), b.trades...)
}

// View exposes the contents without copying. The slice must not be modified
// or retained past the next mutation.
func (b *TradeBuffer) View() []models.Trade { return b.trades }
