package engine

import (
	"path/filepath"
	"testing"

	"spotdex/pkg/dex/market"
	"spotdex/pkg/dex/orderbook"
	"spotdex/pkg/dex/wallet"
	"spotdex/pkg/storage"
)

func TestRestoreRebuildsStateAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotdex.db")

	store, err := storage.NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	e := New(wallet.NewLedger("ETH"), market.NewRegistry(), Options{Store: store})
	if err := e.AddToken("LINK", linkContract); err != nil {
		t.Fatalf("add token: %v", err)
	}
	mustDeposit(t, e, buyer, "ETH", 10000)
	mustDeposit(t, e, seller1, "LINK", 10)
	mustLimit(t, e, seller1, orderbook.Sell, "LINK", 5, 300)
	placed := mustLimit(t, e, seller1, orderbook.Sell, "LINK", 5, 400)
	if _, err := e.ExecuteMarketOrder(buyer, orderbook.Buy, "LINK", 2); err != nil {
		t.Fatalf("market order: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Fresh process: same database, empty in-memory state.
	store2, err := storage.NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { store2.Close() })

	e2 := New(wallet.NewLedger("ETH"), market.NewRegistry(), Options{Store: store2})
	if err := e2.AddToken("LINK", linkContract); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := e2.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := e2.Ledger().BalanceOf(buyer, "LINK"); got != 2 {
		t.Errorf("buyer LINK = %d, want 2", got)
	}
	if got := e2.Ledger().BalanceOf(buyer, "ETH"); got != 10000-600 {
		t.Errorf("buyer ETH = %d, want %d", got, 10000-600)
	}

	book := e2.OrderBook("LINK", orderbook.Sell)
	if len(book) != 2 {
		t.Fatalf("restored book length = %d, want 2", len(book))
	}
	if book[0].Price != 300 || book[0].Filled != 2 {
		t.Errorf("restored best order = %+v, want price 300 filled 2", book[0])
	}

	tape := e2.RecentFills("LINK", 10)
	if len(tape) != 1 || tape[0].Price != 300 || tape[0].Qty != 2 {
		t.Errorf("restored tape = %+v, want one fill 2@300", tape)
	}

	// IDs keep increasing after restart.
	mustDeposit(t, e2, seller1, "LINK", 5)
	next := mustLimit(t, e2, seller1, orderbook.Sell, "LINK", 5, 500)
	if next.ID <= placed.ID {
		t.Errorf("post-restart id = %d, want > %d", next.ID, placed.ID)
	}
}
