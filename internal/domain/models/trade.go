package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of a trade.
type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// Valid reports whether t is BUY or SELL.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// ParseTransactionType accepts either side in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// Trade is one executed order record as the broker server reports it.
// Trades are values: once received they are never modified.
type Trade struct {
	ID              int64           `json:"id"`
	Username        string          `json:"username"`
	Broker          string          `json:"broker"`
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	TransactionType TransactionType `json:"transaction_type"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       string          `json:"timestamp"`
	BrokerOrderID   string          `json:"broker_order_id"`
}

// ConnState is the lifecycle state of a feed connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Open
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Open:
		return "Open"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON frames.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (s *ConnState) UnmarshalText(b []byte) error {
	for _, st := range []ConnState{Disconnected, Connecting, Open, Closed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", b)
}

// Point is one chart sample: X is the 1-based buffer position.
type Point struct {
	X int             `json:"x"`
	Y decimal.Decimal `json:"y"`
}

// Series is the renderable form of a trade buffer.
type Series struct {
	Label  string  `json:"label"`
	XTitle string  `json:"x_title"`
	YTitle string  `json:"y_title"`
	Points []Point `json:"points"`
}

// ChartFrame is what a live chart publishes after each change.
type ChartFrame struct {
	State  ConnState `json:"state"`
	Series Series    `json:"series"`
	Notice string    `json:"notice,omitempty"`
}
