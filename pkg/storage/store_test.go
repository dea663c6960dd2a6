package storage

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"spotdex/pkg/dex/orderbook"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "spotdex.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBalancesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveBalances(alice, map[string]int64{"ETH": 10000, "LINK": 5}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SaveBalances(bob, map[string]int64{"ETH": 7}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	all, err := s.LoadAllBalances()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("accounts = %d, want 2", len(all))
	}
	if all[alice]["LINK"] != 5 || all[alice]["ETH"] != 10000 {
		t.Errorf("alice balances = %v", all[alice])
	}
	if all[bob]["ETH"] != 7 {
		t.Errorf("bob balances = %v", all[bob])
	}
}

func TestOrdersRoundTrip(t *testing.T) {
	s := newTestStore(t)

	orders := []*orderbook.Order{
		{ID: 1, Trader: alice, Side: orderbook.Sell, Symbol: "LINK", Price: 300, Amount: 5, Filled: 2},
		{ID: 2, Trader: bob, Side: orderbook.Buy, Symbol: "LINK", Price: 250, Amount: 3},
	}
	for _, o := range orders {
		if err := s.SaveOrder(o); err != nil {
			t.Fatalf("save order %d: %v", o.ID, err)
		}
	}

	loaded, err := s.LoadOrders()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("orders = %d, want 2", len(loaded))
	}

	byID := map[uint64]*orderbook.Order{}
	for _, o := range loaded {
		byID[o.ID] = o
	}
	if o := byID[1]; o == nil || o.Filled != 2 || o.Side != orderbook.Sell || o.Trader != alice {
		t.Errorf("order 1 = %+v", o)
	}

	if err := s.DeleteOrder("LINK", orderbook.Sell, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	loaded, _ = s.LoadOrders()
	if len(loaded) != 1 || loaded[0].ID != 2 {
		t.Errorf("after delete: %+v, want only order 2", loaded)
	}
}

func TestFillsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := int64(1); i <= 3; i++ {
		f := orderbook.Fill{
			MakerOrderID: uint64(i),
			Symbol:       "LINK",
			Price:        300 + i,
			Qty:          1,
			Taker:        bob,
			Maker:        alice,
			TakerSide:    orderbook.Buy,
			Timestamp:    1000 + i,
		}
		if err := s.SaveFill(f); err != nil {
			t.Fatalf("save fill: %v", err)
		}
	}

	fills, err := s.LoadRecentFills("LINK", 2)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[0].Timestamp != 1003 || fills[1].Timestamp != 1002 {
		t.Errorf("timestamps = %d, %d, want newest first", fills[0].Timestamp, fills[1].Timestamp)
	}

	// Other symbols stay out of the scan.
	other, _ := s.LoadRecentFills("AAVE", 10)
	if len(other) != 0 {
		t.Errorf("AAVE fills = %d, want 0", len(other))
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.LoadSequence(); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v, want absent", ok, err)
	}

	if err := s.SaveSequence(42); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	next, ok, err := s.LoadSequence()
	if err != nil || !ok || next != 42 {
		t.Errorf("sequence = %d ok=%v err=%v, want 42", next, ok, err)
	}
}
