package orderbook

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func sellOrder(id uint64, price, amount int64) *Order {
	return &Order{ID: id, Trader: alice, Side: Sell, Symbol: "LINK", Price: price, Amount: amount}
}

func buyOrder(id uint64, price, amount int64) *Order {
	return &Order{ID: id, Trader: bob, Side: Buy, Symbol: "LINK", Price: price, Amount: amount}
}

func prices(book *Book) []int64 {
	snap := book.Snapshot()
	out := make([]int64, len(snap))
	for i, o := range snap {
		out[i] = o.Price
	}
	return out
}

func TestSellBookSortsAscending(t *testing.T) {
	book := NewBook(Sell)
	book.Insert(sellOrder(1, 500, 5))
	book.Insert(sellOrder(2, 300, 5))
	book.Insert(sellOrder(3, 400, 5))

	want := []int64{300, 400, 500}
	got := prices(book)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sell book order = %v, want %v", got, want)
		}
	}

	best, ok := book.PeekBest()
	if !ok || best.Price != 300 {
		t.Errorf("best sell = %v, want price 300", best)
	}
}

func TestBuyBookSortsDescending(t *testing.T) {
	book := NewBook(Buy)
	book.Insert(buyOrder(1, 300, 5))
	book.Insert(buyOrder(2, 500, 5))
	book.Insert(buyOrder(3, 400, 5))

	want := []int64{500, 400, 300}
	got := prices(book)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buy book order = %v, want %v", got, want)
		}
	}

	best, ok := book.PeekBest()
	if !ok || best.Price != 500 {
		t.Errorf("best bid = %v, want price 500", best)
	}
}

func TestEqualPricesKeepCreationOrder(t *testing.T) {
	for _, side := range []Side{Buy, Sell} {
		t.Run(side.String(), func(t *testing.T) {
			book := NewBook(side)
			mk := sellOrder
			if side == Buy {
				mk = buyOrder
			}
			// Insert out of ID order at a shared price.
			book.Insert(mk(7, 300, 5))
			book.Insert(mk(3, 300, 5))
			book.Insert(mk(5, 300, 5))

			snap := book.Snapshot()
			wantIDs := []uint64{3, 5, 7}
			for i, want := range wantIDs {
				if snap[i].ID != want {
					t.Fatalf("ids at price 300 = %v, want ascending %v", snap, wantIDs)
				}
			}
		})
	}
}

func TestPeekBestEmpty(t *testing.T) {
	book := NewBook(Sell)
	if _, ok := book.PeekBest(); ok {
		t.Error("expected no best order in empty book")
	}
}

func TestRemoveFilled(t *testing.T) {
	book := NewBook(Sell)
	o := sellOrder(1, 300, 5)
	book.Insert(o)

	o.Filled = 3
	if err := book.RemoveFilled(o); !errors.Is(err, ErrNotFilled) {
		t.Errorf("partially filled removal: err = %v, want ErrNotFilled", err)
	}

	o.Filled = 5
	if err := book.RemoveFilled(o); err != nil {
		t.Fatalf("removal failed: %v", err)
	}
	if book.Len() != 0 {
		t.Errorf("book length = %d after removal, want 0", book.Len())
	}

	if err := book.RemoveFilled(o); !errors.Is(err, ErrNotInBook) {
		t.Errorf("double removal: err = %v, want ErrNotInBook", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	book := NewBook(Sell)
	book.Insert(sellOrder(1, 300, 5))

	snap := book.Snapshot()
	snap[0].Filled = 99

	if again := book.Snapshot(); again[0].Filled != 0 {
		t.Error("mutating a snapshot leaked into the book")
	}
}

func TestDepthAggregatesPriceLevels(t *testing.T) {
	book := NewBook(Sell)
	book.Insert(sellOrder(1, 300, 5))
	book.Insert(sellOrder(2, 300, 3))
	book.Insert(sellOrder(3, 400, 2))

	levels := book.Depth()
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	if levels[0].Price != 300 || levels[0].Qty != 8 {
		t.Errorf("level[0] = %+v, want price 300 qty 8", levels[0])
	}
	if levels[1].Price != 400 || levels[1].Qty != 2 {
		t.Errorf("level[1] = %+v, want price 400 qty 2", levels[1])
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"buy", Buy, false},
		{"SELL", Sell, false},
		{"hold", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
