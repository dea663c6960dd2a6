package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spotdex/pkg/dex/orderbook"
	"spotdex/pkg/dex/wallet"
)

// journal records every mutation of one ExecuteMarketOrder call so the call
// can be undone as a unit. The clamping makes rollback unreachable in
// practice; it exists so an engine defect surfaces as a clean abort instead
// of half-applied state.
type journal struct {
	transfers []transferOp
	fills     []fillOp
	removed   []removeOp
}

type transferOp struct {
	from, to common.Address
	symbol   string
	qty      int64
}

type fillOp struct {
	order *orderbook.Order
	qty   int64
}

type removeOp struct {
	book  *orderbook.Book
	order *orderbook.Order
}

// transfer debits from and credits to, recording the movement.
// A failed debit leaves both sides untouched.
func (j *journal) transfer(l *wallet.Ledger, from, to common.Address, symbol string, qty int64) error {
	if err := l.Debit(from, symbol, qty); err != nil {
		return err
	}
	if err := l.Credit(to, symbol, qty); err != nil {
		// Re-credit the debited side before reporting.
		if cerr := l.Credit(from, symbol, qty); cerr != nil {
			return fmt.Errorf("%v (restoring debit: %v)", err, cerr)
		}
		return err
	}
	j.transfers = append(j.transfers, transferOp{from: from, to: to, symbol: symbol, qty: qty})
	return nil
}

// fill advances the resting order's filled quantity.
func (j *journal) fill(o *orderbook.Order, qty int64) {
	o.Filled += qty
	j.fills = append(j.fills, fillOp{order: o, qty: qty})
}

// remove takes a fully consumed order out of its book.
func (j *journal) remove(b *orderbook.Book, o *orderbook.Order) error {
	if err := b.RemoveFilled(o); err != nil {
		return err
	}
	j.removed = append(j.removed, removeOp{book: b, order: o})
	return nil
}

// rollback undoes all recorded mutations in reverse order. The ledger
// inverse of each transfer cannot fail under serialized execution; if it
// somehow does, the failure is logged and rollback continues.
func (j *journal) rollback(l *wallet.Ledger, log *zap.SugaredLogger) {
	for i := len(j.removed) - 1; i >= 0; i-- {
		op := j.removed[i]
		op.book.Insert(op.order)
	}
	for i := len(j.fills) - 1; i >= 0; i-- {
		op := j.fills[i]
		op.order.Filled -= op.qty
	}
	for i := len(j.transfers) - 1; i >= 0; i-- {
		op := j.transfers[i]
		if err := l.Debit(op.to, op.symbol, op.qty); err != nil {
			log.Errorw("rollback_debit_failed", "account", op.to.Hex(), "symbol", op.symbol, "err", err)
			continue
		}
		if err := l.Credit(op.from, op.symbol, op.qty); err != nil {
			log.Errorw("rollback_credit_failed", "account", op.from.Hex(), "symbol", op.symbol, "err", err)
		}
	}
}
