package wallet

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func TestBalanceOfUnknownIsZero(t *testing.T) {
	l := NewLedger("ETH")
	if got := l.BalanceOf(alice, "LINK"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestCreditDebit(t *testing.T) {
	l := NewLedger("ETH")

	if err := l.Credit(alice, "LINK", 50); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "LINK"); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}

	if err := l.Debit(alice, "LINK", 20); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "LINK"); got != 30 {
		t.Errorf("balance = %d, want 30", got)
	}
}

func TestDebitPastBalanceFails(t *testing.T) {
	l := NewLedger("ETH")
	l.Credit(alice, "LINK", 10)

	err := l.Debit(alice, "LINK", 11)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Rejected debit must leave the balance untouched, never negative.
	if got := l.BalanceOf(alice, "LINK"); got != 10 {
		t.Errorf("balance = %d after rejected debit, want 10", got)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	l := NewLedger("ETH")
	if err := l.Credit(alice, "ETH", -1); err == nil {
		t.Error("expected error for negative credit")
	}
	if err := l.Debit(alice, "ETH", -1); err == nil {
		t.Error("expected error for negative debit")
	}
}

func TestDepositWithdraw(t *testing.T) {
	l := NewLedger("ETH")

	if err := l.Deposit(alice, "ETH", 10000); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := l.Deposit(alice, "ETH", 0); err == nil {
		t.Error("expected error for zero deposit")
	}

	if err := l.Withdraw(alice, "ETH", 4000); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if got := l.BalanceOf(alice, "ETH"); got != 6000 {
		t.Errorf("balance = %d, want 6000", got)
	}

	if err := l.Withdraw(alice, "ETH", 7000); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestBalancesAndAccounts(t *testing.T) {
	l := NewLedger("ETH")
	l.Credit(alice, "ETH", 100)
	l.Credit(alice, "LINK", 5)
	l.Credit(bob, "ETH", 7)

	balances := l.Balances(alice)
	if balances["ETH"] != 100 || balances["LINK"] != 5 {
		t.Errorf("balances = %v", balances)
	}

	// The returned map is a copy.
	balances["ETH"] = 0
	if got := l.BalanceOf(alice, "ETH"); got != 100 {
		t.Error("mutating Balances() result leaked into the ledger")
	}

	if got := len(l.Accounts()); got != 2 {
		t.Errorf("accounts = %d, want 2", got)
	}
}

func TestRestore(t *testing.T) {
	l := NewLedger("ETH")
	l.Restore(alice, map[string]int64{"ETH": 42, "LINK": 3})

	if got := l.BalanceOf(alice, "LINK"); got != 3 {
		t.Errorf("restored LINK balance = %d, want 3", got)
	}
}
