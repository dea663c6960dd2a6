package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"spotdex/pkg/dex/market"
	"spotdex/pkg/dex/orderbook"
	"spotdex/pkg/dex/wallet"
	"spotdex/pkg/storage"
	"spotdex/pkg/util"
)

// ErrInvariantViolation wraps failures that the clamped matching loop makes
// unreachable. Seeing one means a defect in the engine, not bad user input;
// the enclosing call rolls back every mutation before reporting it.
var ErrInvariantViolation = errors.New("invariant violation")

// recentFillCap bounds the in-memory trade tape per symbol.
const recentFillCap = 100

// Exchange is the trading core: one ledger, one token registry, and a lazily
// created pair of books (buy, sell) per onboarded symbol.
//
// Every exported operation runs under a single mutex, giving the
// run-to-completion execution model the matching algorithm assumes. A failed
// precondition leaves ledger and books untouched.
type Exchange struct {
	mu     sync.Mutex
	log    *zap.SugaredLogger
	clock  util.Clock
	ledger *wallet.Ledger
	tokens *market.Registry
	books  map[string]*bookPair
	store  *storage.Store // optional; nil disables persistence
	nextID uint64

	recent map[string][]orderbook.Fill // newest first, capped
}

type bookPair struct {
	buy  *orderbook.Book
	sell *orderbook.Book
}

func (p *bookPair) side(s orderbook.Side) *orderbook.Book {
	if s == orderbook.Buy {
		return p.buy
	}
	return p.sell
}

// Options carries the optional collaborators of an Exchange.
type Options struct {
	Store  *storage.Store
	Logger *zap.Logger
	Clock  util.Clock
}

// New creates an Exchange around the given ledger and token registry.
func New(ledger *wallet.Ledger, tokens *market.Registry, opts Options) *Exchange {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}

	return &Exchange{
		log:    logger.Sugar(),
		clock:  clock,
		ledger: ledger,
		tokens: tokens,
		books:  make(map[string]*bookPair),
		store:  opts.Store,
		nextID: 1,
		recent: make(map[string][]orderbook.Fill),
	}
}

// Ledger exposes the balance ledger for read paths (API balance queries).
func (e *Exchange) Ledger() *wallet.Ledger { return e.ledger }

// Tokens exposes the token registry for read paths.
func (e *Exchange) Tokens() *market.Registry { return e.tokens }

// AddToken onboards a token symbol. Books are created lazily on the first
// limit order, never here.
func (e *Exchange) AddToken(symbol string, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tokens.AddToken(symbol, addr); err != nil {
		return err
	}
	e.log.Infow("token_onboarded", "symbol", symbol, "contract", addr.Hex())
	return nil
}

// Deposit credits qty of symbol to the trader. Token symbols must be
// onboarded; the native pseudo-symbol always is.
func (e *Exchange) Deposit(trader common.Address, symbol string, qty int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol != e.ledger.Native() && !e.tokens.IsOnboarded(symbol) {
		return fmt.Errorf("%w: %s", market.ErrNotOnboarded, symbol)
	}
	if err := e.ledger.Deposit(trader, symbol, qty); err != nil {
		return err
	}
	e.persistBalances(trader)
	e.log.Infow("deposit", "trader", trader.Hex(), "symbol", symbol, "qty", qty)
	return nil
}

// Withdraw debits qty of symbol from the trader.
// Fails with wallet.ErrInsufficientBalance past the balance.
func (e *Exchange) Withdraw(trader common.Address, symbol string, qty int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol != e.ledger.Native() && !e.tokens.IsOnboarded(symbol) {
		return fmt.Errorf("%w: %s", market.ErrNotOnboarded, symbol)
	}
	if err := e.ledger.Withdraw(trader, symbol, qty); err != nil {
		return err
	}
	e.persistBalances(trader)
	e.log.Infow("withdraw", "trader", trader.Hex(), "symbol", symbol, "qty", qty)
	return nil
}

// CreateLimitOrder validates the trader's point-in-time balance, assigns a
// fresh ID, and rests the order in the matching book.
//
// The balance check is a snapshot, not an escrow: funds stay visible and
// spendable, and the actual debit happens at fill time. Two overlapping sell
// orders can therefore commit the same tokens twice; the matching loop's
// clamping keeps the ledger solvent regardless.
func (e *Exchange) CreateLimitOrder(trader common.Address, side orderbook.Side, symbol string, amount, price int64) (orderbook.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return orderbook.Order{}, fmt.Errorf("order amount must be positive: %d", amount)
	}
	if price <= 0 {
		return orderbook.Order{}, fmt.Errorf("order price must be positive: %d", price)
	}
	if !e.tokens.IsOnboarded(symbol) {
		return orderbook.Order{}, fmt.Errorf("%w: %s", market.ErrNotOnboarded, symbol)
	}

	switch side {
	case orderbook.Sell:
		if have := e.ledger.BalanceOf(trader, symbol); have < amount {
			return orderbook.Order{}, fmt.Errorf("%w: selling %d %s, hold %d", wallet.ErrInsufficientBalance, amount, symbol, have)
		}
	case orderbook.Buy:
		cost := amount * price
		if have := e.ledger.BalanceOf(trader, e.ledger.Native()); have < cost {
			return orderbook.Order{}, fmt.Errorf("%w: bid costs %d %s, hold %d", wallet.ErrInsufficientBalance, cost, e.ledger.Native(), have)
		}
	default:
		return orderbook.Order{}, fmt.Errorf("invalid side: %d", side)
	}

	o := &orderbook.Order{
		ID:        e.nextID,
		Trader:    trader,
		Side:      side,
		Symbol:    symbol,
		Price:     price,
		Amount:    amount,
		CreatedAt: e.clock.Now().UnixMilli(),
	}
	e.nextID++

	e.pair(symbol).side(side).Insert(o)

	if e.store != nil {
		if err := e.store.SaveOrder(o); err != nil {
			e.log.Warnw("persist_order_failed", "id", o.ID, "err", err)
		}
		if err := e.store.SaveSequence(e.nextID); err != nil {
			e.log.Warnw("persist_sequence_failed", "err", err)
		}
	}

	e.log.Infow("limit_order",
		"id", o.ID, "trader", trader.Hex(), "side", side.String(),
		"symbol", symbol, "amount", amount, "price", price)
	return *o, nil
}

// ExecuteMarketOrder fills up to amount of symbol against the opposite book,
// best price first, paying each resting order its own posted price.
//
// Each fill is clamped to min(remaining, order remaining, what the buying
// side can still afford at this price), with the buyer's balance re-read
// every iteration because earlier fills in the same call already moved
// funds. Running out of book or funds ends the loop without error: a
// partial or zero fill is a successful call.
func (e *Exchange) ExecuteMarketOrder(trader common.Address, side orderbook.Side, symbol string, amount int64) ([]orderbook.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive: %d", amount)
	}
	if side != orderbook.Buy && side != orderbook.Sell {
		return nil, fmt.Errorf("invalid side: %d", side)
	}

	native := e.ledger.Native()

	// Pre-trade checks, before any mutation.
	if side == orderbook.Sell {
		if have := e.ledger.BalanceOf(trader, symbol); have < amount {
			return nil, fmt.Errorf("%w: selling %d %s, hold %d", wallet.ErrInsufficientBalance, amount, symbol, have)
		}
	} else {
		if e.ledger.BalanceOf(trader, native) <= 0 {
			return nil, fmt.Errorf("%w: no %s to buy with", wallet.ErrInsufficientBalance, native)
		}
	}

	pair, ok := e.books[symbol]
	if !ok {
		return nil, nil // no book yet: zero fill, not an error
	}
	book := pair.side(side.Opposite())

	var (
		j         journal
		fills     []orderbook.Fill
		remaining = amount
		now       = e.clock.Now().UnixMilli()
	)

	for remaining > 0 {
		best, ok := book.PeekBest()
		if !ok {
			break
		}

		// The buying side of this fill pays native; its live balance caps
		// how many units it can take at the resting price.
		buyer, seller := best.Trader, trader
		if side == orderbook.Buy {
			buyer, seller = trader, best.Trader
		}
		budgetUnits := e.ledger.BalanceOf(buyer, native) / best.Price

		fillQty := min3(remaining, best.Remaining(), budgetUnits)
		if fillQty == 0 {
			break // buying side cannot afford one more unit here
		}

		cost := fillQty * best.Price
		if err := j.transfer(e.ledger, buyer, seller, native, cost); err != nil {
			return nil, e.abort(&j, fmt.Errorf("native leg: %w", err))
		}
		if err := j.transfer(e.ledger, seller, buyer, symbol, fillQty); err != nil {
			return nil, e.abort(&j, fmt.Errorf("token leg: %w", err))
		}

		j.fill(best, fillQty)
		remaining -= fillQty

		fills = append(fills, orderbook.Fill{
			MakerOrderID: best.ID,
			Symbol:       symbol,
			Price:        best.Price,
			Qty:          fillQty,
			Taker:        trader,
			Maker:        best.Trader,
			TakerSide:    side,
			Timestamp:    now,
		})

		if best.Filled == best.Amount {
			if err := j.remove(book, best); err != nil {
				return nil, e.abort(&j, err)
			}
		}
	}

	e.recordFills(fills)
	e.persistMatch(&j, fills, trader)

	if len(fills) > 0 {
		e.log.Infow("market_order",
			"trader", trader.Hex(), "side", side.String(), "symbol", symbol,
			"amount", amount, "filled", amount-remaining, "fills", len(fills))
	}
	return fills, nil
}

// OrderBook returns the resting orders for (symbol, side) in book order.
// Fully filled orders are never present.
func (e *Exchange) OrderBook(symbol string, side orderbook.Side) []orderbook.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	pair, ok := e.books[symbol]
	if !ok {
		return nil
	}
	return pair.side(side).Snapshot()
}

// Depth returns the aggregated price levels of both books for symbol.
func (e *Exchange) Depth(symbol string) (bids, asks []orderbook.PriceLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pair, ok := e.books[symbol]
	if !ok {
		return nil, nil
	}
	return pair.buy.Depth(), pair.sell.Depth()
}

// RecentFills returns the newest fills for symbol, newest first.
func (e *Exchange) RecentFills(symbol string, limit int) []orderbook.Fill {
	e.mu.Lock()
	defer e.mu.Unlock()

	tape := e.recent[symbol]
	if limit > 0 && limit < len(tape) {
		tape = tape[:limit]
	}
	out := make([]orderbook.Fill, len(tape))
	copy(out, tape)
	return out
}

// Restore rebuilds ledger, books, and the ID counter from the store.
// Call once at startup, before serving traffic.
func (e *Exchange) Restore() error {
	if e.store == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balances, err := e.store.LoadAllBalances()
	if err != nil {
		return fmt.Errorf("restore balances: %w", err)
	}
	for addr, b := range balances {
		e.ledger.Restore(addr, b)
	}

	orders, err := e.store.LoadOrders()
	if err != nil {
		return fmt.Errorf("restore orders: %w", err)
	}
	for _, o := range orders {
		e.pair(o.Symbol).side(o.Side).Insert(o)
		if o.ID >= e.nextID {
			e.nextID = o.ID + 1
		}
	}

	// Warm the trade tape for every symbol with a live book.
	for symbol := range e.books {
		fills, err := e.store.LoadRecentFills(symbol, recentFillCap)
		if err != nil {
			return fmt.Errorf("restore fills: %w", err)
		}
		if len(fills) > 0 {
			e.recent[symbol] = fills
		}
	}

	if next, ok, err := e.store.LoadSequence(); err != nil {
		return fmt.Errorf("restore sequence: %w", err)
	} else if ok && next > e.nextID {
		e.nextID = next
	}

	e.log.Infow("state_restored", "accounts", len(balances), "orders", len(orders), "next_id", e.nextID)
	return nil
}

func (e *Exchange) pair(symbol string) *bookPair {
	p, ok := e.books[symbol]
	if !ok {
		p = &bookPair{
			buy:  orderbook.NewBook(orderbook.Buy),
			sell: orderbook.NewBook(orderbook.Sell),
		}
		e.books[symbol] = p
	}
	return p
}

// abort undoes every mutation the journal recorded and wraps the cause.
// Only reachable through an engine defect; the call reports failure with all
// state exactly as it was before the call.
func (e *Exchange) abort(j *journal, cause error) error {
	j.rollback(e.ledger, e.log)
	e.log.Errorw("market_order_aborted", "err", cause)
	return fmt.Errorf("%w: %v", ErrInvariantViolation, cause)
}

func (e *Exchange) recordFills(fills []orderbook.Fill) {
	for _, f := range fills {
		tape := e.recent[f.Symbol]
		tape = append([]orderbook.Fill{f}, tape...)
		if len(tape) > recentFillCap {
			tape = tape[:recentFillCap]
		}
		e.recent[f.Symbol] = tape
	}
}

// persistMatch writes the post-match state of every touched order and
// account. Persistence failures are logged, not surfaced: the in-memory
// state is authoritative and already consistent.
func (e *Exchange) persistMatch(j *journal, fills []orderbook.Fill, taker common.Address) {
	if e.store == nil {
		return
	}

	for _, fo := range j.fills {
		if fo.order.Filled == fo.order.Amount {
			if err := e.store.DeleteOrder(fo.order.Symbol, fo.order.Side, fo.order.ID); err != nil {
				e.log.Warnw("persist_order_delete_failed", "id", fo.order.ID, "err", err)
			}
		} else {
			if err := e.store.SaveOrder(fo.order); err != nil {
				e.log.Warnw("persist_order_failed", "id", fo.order.ID, "err", err)
			}
		}
	}

	touched := map[common.Address]struct{}{taker: {}}
	for _, f := range fills {
		touched[f.Maker] = struct{}{}
		if err := e.store.SaveFill(f); err != nil {
			e.log.Warnw("persist_fill_failed", "maker_order", f.MakerOrderID, "err", err)
		}
	}
	for addr := range touched {
		e.persistBalances(addr)
	}
}

func (e *Exchange) persistBalances(addr common.Address) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveBalances(addr, e.ledger.Balances(addr)); err != nil {
		e.log.Warnw("persist_balances_failed", "trader", addr.Hex(), "err", err)
	}
}

func min3(a, b, c int64) int64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
