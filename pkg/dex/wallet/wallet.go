package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientBalance is returned when a debit or withdrawal exceeds the
// account's balance for that symbol. The ledger is left unchanged.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger tracks per-account, per-symbol balances for every onboarded token
// plus the chain's native asset (which has no token contract and is keyed by
// a pseudo-symbol, "ETH" by default).
//
// Balances are non-negative integers in the asset's smallest unit. A debit
// past zero is rejected, never clamped or underflowed.
type Ledger struct {
	mu       sync.RWMutex
	native   string
	balances map[common.Address]map[string]int64
}

// NewLedger creates an empty ledger. nativeSymbol is the pseudo-symbol for
// the chain's base asset (used as the quote asset for every market).
func NewLedger(nativeSymbol string) *Ledger {
	return &Ledger{
		native:   nativeSymbol,
		balances: make(map[common.Address]map[string]int64),
	}
}

// Native returns the pseudo-symbol of the chain's base asset.
func (l *Ledger) Native() string { return l.native }

// BalanceOf returns the account's balance for symbol. Unknown accounts and
// symbols read as zero.
func (l *Ledger) BalanceOf(addr common.Address, symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr][symbol]
}

// Credit adds qty to the account's balance for symbol.
func (l *Ledger) Credit(addr common.Address, symbol string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("credit amount cannot be negative: %d", qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.accountLocked(addr)[symbol] += qty
	return nil
}

// Debit removes qty from the account's balance for symbol.
// Fails with ErrInsufficientBalance if qty exceeds the balance.
func (l *Ledger) Debit(addr common.Address, symbol string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("debit amount cannot be negative: %d", qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[addr][symbol]
	if bal < qty {
		return fmt.Errorf("%w: %s has %d %s, need %d", ErrInsufficientBalance, addr.Hex(), bal, symbol, qty)
	}

	l.accountLocked(addr)[symbol] = bal - qty
	return nil
}

// Deposit credits qty of symbol to the account. Unlike Credit it insists on a
// strictly positive amount, matching the external deposit entrypoint.
func (l *Ledger) Deposit(addr common.Address, symbol string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("deposit amount must be positive: %d", qty)
	}
	return l.Credit(addr, symbol, qty)
}

// Withdraw debits qty of symbol from the account.
func (l *Ledger) Withdraw(addr common.Address, symbol string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("withdraw amount must be positive: %d", qty)
	}
	return l.Debit(addr, symbol, qty)
}

// Balances returns a copy of all balances held by the account.
func (l *Ledger) Balances(addr common.Address) map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int64, len(l.balances[addr]))
	for sym, qty := range l.balances[addr] {
		out[sym] = qty
	}
	return out
}

// Accounts returns every address with at least one ledger entry.
// Used by the persistence layer when snapshotting.
func (l *Ledger) Accounts() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]common.Address, 0, len(l.balances))
	for addr := range l.balances {
		addrs = append(addrs, addr)
	}
	return addrs
}

// Restore replaces the account's balances wholesale. Used when loading
// persisted state at startup; not part of the trading surface.
func (l *Ledger) Restore(addr common.Address, balances map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := make(map[string]int64, len(balances))
	for sym, qty := range balances {
		entry[sym] = qty
	}
	l.balances[addr] = entry
}

func (l *Ledger) accountLocked(addr common.Address) map[string]int64 {
	entry, ok := l.balances[addr]
	if !ok {
		entry = make(map[string]int64)
		l.balances[addr] = entry
	}
	return entry
}
