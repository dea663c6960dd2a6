package orderbook

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFilled reports a RemoveFilled call on an order that still has
	// remaining capacity. Programming error, not a user error.
	ErrNotFilled = errors.New("order not fully filled")

	// ErrNotInBook reports a RemoveFilled call on an order the book does
	// not contain.
	ErrNotInBook = errors.New("order not in book")
)

// PriceLevel aggregates resting quantity at one price.
type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"` // total unfilled qty at this price
}

// Book is the ordered set of resting limit orders for one (symbol, side).
//
// Invariant: orders[i] has priority over orders[i+1]: better price first
// (ascending for sells, descending for buys), lower ID first among equal
// prices. The book is not internally locked; the engine serializes every
// top-level operation.
type Book struct {
	side   Side
	orders []*Order
}

func NewBook(side Side) *Book {
	return &Book{side: side}
}

func (b *Book) Side() Side { return b.side }

func (b *Book) Len() int { return len(b.orders) }

// Insert places o at the position that preserves price-time priority.
// Linear scan from the back: books stay short relative to the cost of a
// balanced structure, and new orders at a shared price belong last anyway.
func (b *Book) Insert(o *Order) {
	i := len(b.orders)
	for i > 0 && b.before(o, b.orders[i-1]) {
		i--
	}
	b.orders = append(b.orders, nil)
	copy(b.orders[i+1:], b.orders[i:])
	b.orders[i] = o
}

// before reports whether a has strictly better priority than rest.
func (b *Book) before(a, rest *Order) bool {
	if a.Price != rest.Price {
		if b.side == Sell {
			return a.Price < rest.Price // cheapest sell first
		}
		return a.Price > rest.Price // highest bid first
	}
	return a.ID < rest.ID // FIFO within a price
}

// PeekBest returns the order with top priority without removing it.
func (b *Book) PeekBest() (*Order, bool) {
	if len(b.orders) == 0 {
		return nil, false
	}
	return b.orders[0], true
}

// RemoveFilled removes a fully consumed order from the book.
// Calling it on an order that is not fully filled, or not present, signals a
// defect in the matching loop and fails accordingly.
func (b *Book) RemoveFilled(o *Order) error {
	if o.Filled != o.Amount {
		return fmt.Errorf("%w: order %d filled %d/%d", ErrNotFilled, o.ID, o.Filled, o.Amount)
	}
	for i, rest := range b.orders {
		if rest == o {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: order %d", ErrNotInBook, o.ID)
}

// Snapshot returns a copy of all resting orders in book order.
// Fully filled orders are removed before any operation returns, so a
// snapshot never contains one.
func (b *Book) Snapshot() []Order {
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}

// Depth aggregates the book into price levels, best first.
func (b *Book) Depth() []PriceLevel {
	var levels []PriceLevel
	for _, o := range b.orders {
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Qty += o.Remaining()
			continue
		}
		levels = append(levels, PriceLevel{Price: o.Price, Qty: o.Remaining()})
	}
	return levels
}
