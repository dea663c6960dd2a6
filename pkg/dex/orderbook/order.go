package orderbook

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side { return -s }

// ParseSide converts the wire representation ("buy"/"sell") to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy", "BUY":
		return Buy, nil
	case "sell", "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("invalid side: %q", s)
	}
}

// Order is a resting limit order.
//
// ID is assigned once at creation and is monotonically increasing across all
// symbols and sides, so it doubles as the time-priority sequence: among equal
// prices the lower ID is always served first. Amount never changes after
// creation; only Filled moves, and only upward.
type Order struct {
	ID        uint64         `json:"id"`
	Trader    common.Address `json:"trader"`
	Side      Side           `json:"side"`
	Symbol    string         `json:"symbol"`
	Price     int64          `json:"price"`  // native units per token unit
	Amount    int64          `json:"amount"` // total token quantity requested
	Filled    int64          `json:"filled"` // cumulative matched quantity
	CreatedAt int64          `json:"createdAt"` // Unix milliseconds
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 { return o.Amount - o.Filled }
