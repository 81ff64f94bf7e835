package usecase

import (
	"testing"

	"BrokerConsole/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbols(trades []models.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.Symbol
	}
	return out
}

func TestTradeBufferSnapshotThenAppends(t *testing.T) {
	b := NewTradeBuffer()
	b.ReplaceAll([]models.Trade{trade("A", "10"), trade("B", "11")})
	b.Append(trade("C", "12.5"))
	b.Append(trade("D", "9"))

	assert.Equal(t, []string{"A", "B", "C", "D"}, symbols(b.Trades()))

	s := RenderSeries(b.View())
	require.Len(t, s.Points, 4)
	for i, p := range s.Points {
		assert.Equal(t, i+1, p.X)
	}
	assert.Equal(t, "12.5", s.Points[2].Y.String())
	assert.Equal(t, "9", s.Points[3].Y.String())
}

func TestTradeBufferReplaceAllDiscards(t *testing.T) {
	b := NewTradeBuffer()
	b.Append(trade("X", "1"))
	b.ReplaceAll([]models.Trade{trade("A", "2")})
	assert.Equal(t, []string{"A"}, symbols(b.Trades()))

	b.ReplaceAll(nil)
	assert.Zero(t, b.Len())
	assert.Empty(t, RenderSeries(b.View()).Points)
}

func TestTradeBufferDoesNotAliasInput(t *testing.T) {
	in := []models.Trade{trade("A", "1"), trade("B", "2")}
	b := NewTradeBuffer()
	b.ReplaceAll(in)
	in[0].Symbol = "Z"

	out := b.Trades()
	out[1].Symbol = "Y"
	assert.Equal(t, []string{"A", "B"}, symbols(b.Trades()))
}

func TestTradeBufferLimit(t *testing.T) {
	b := NewTradeBuffer(WithLimit(3))
	b.ReplaceAll([]models.Trade{trade("A", "1"), trade("B", "2"), trade("C", "3"), trade("D", "4")})
	assert.Equal(t, []string{"B", "C", "D"}, symbols(b.Trades()))

	b.Append(trade("E", "5"))
	b.Append(trade("F", "6"))
	assert.Equal(t, []string{"D", "E", "F"}, symbols(b.Trades()))

	s := RenderSeries(b.View())
	assert.Equal(t, 1, s.Points[0].X)
	assert.Equal(t, "4", s.Points[0].Y.String())
}

func TestRenderSeriesLabels(t *testing.T) {
	s := RenderSeries(nil)
	assert.Equal(t, "Trade Price", s.Label)
	assert.Equal(t, "Trade Index", s.XTitle)
	assert.Equal(t, "Price", s.YTitle)
	assert.NotNil(t, s.Points)
}
