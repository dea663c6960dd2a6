package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"spotdex/pkg/dex/orderbook"
)

// Store provides Pebble-based persistence for ledger balances, resting
// orders, and trade history. Thread-safety comes from the engine's
// serialization of top-level operations; the store itself adds none.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveBalances persists all balances of one account.
func (s *Store) SaveBalances(addr common.Address, balances map[string]int64) error {
	data, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("failed to marshal balances: %w", err)
	}
	if err := s.db.Set(balanceKey(addr), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save balances: %w", err)
	}
	return nil
}

// LoadAllBalances loads every persisted account's balances.
func (s *Store) LoadAllBalances() (map[common.Address]map[string]int64, error) {
	prefix := balancePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	defer iter.Close()

	out := make(map[common.Address]map[string]int64)
	for iter.First(); iter.Valid(); iter.Next() {
		var balances map[string]int64
		if err := json.Unmarshal(iter.Value(), &balances); err != nil {
			continue // skip invalid entries
		}
		out[addrFromBalanceKey(iter.Key())] = balances
	}
	return out, nil
}

// SaveOrder persists a resting order (insert or fill update).
func (s *Store) SaveOrder(o *orderbook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.Symbol, o.Side, o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order %d: %w", o.ID, err)
	}
	return nil
}

// DeleteOrder removes a fully consumed order.
func (s *Store) DeleteOrder(symbol string, side orderbook.Side, id uint64) error {
	if err := s.db.Delete(orderKey(symbol, side, id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	return nil
}

// LoadOrders loads every resting order across all symbols and sides.
// Ordering follows the key schema (symbol, side, ID); callers rebuilding a
// book must re-insert, not assume priority order.
func (s *Store) LoadOrders() ([]*orderbook.Order, error) {
	prefix := orderPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	defer iter.Close()

	var orders []*orderbook.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o orderbook.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue
		}
		orders = append(orders, &o)
	}
	return orders, nil
}

// SaveFill appends a fill to the trade history. NoSync: history is
// reconstructible and not load-bearing for book state.
func (s *Store) SaveFill(f orderbook.Fill) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal fill: %w", err)
	}
	if err := s.db.Set(fillKey(f.Symbol, f.Timestamp, f.MakerOrderID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save fill: %w", err)
	}
	return nil
}

// LoadRecentFills loads the most recent fills for a symbol, newest first.
func (s *Store) LoadRecentFills(symbol string, limit int) ([]orderbook.Fill, error) {
	prefix := fillPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate fills: %w", err)
	}
	defer iter.Close()

	var fills []orderbook.Fill
	for iter.Last(); iter.Valid() && len(fills) < limit; iter.Prev() {
		var f orderbook.Fill
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// SaveSequence persists the next order ID.
func (s *Store) SaveSequence(next uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := s.db.Set(sequenceKey(), buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}
	return nil
}

// LoadSequence returns the persisted next order ID, or (0, false) if the
// store has never assigned one.
func (s *Store) LoadSequence() (uint64, bool, error) {
	val, closer, err := s.db.Get(sequenceKey())
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load sequence: %w", err)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, false, fmt.Errorf("corrupt sequence value: %d bytes", len(val))
	}
	return binary.BigEndian.Uint64(val), true, nil
}
