package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"spotdex/pkg/dex/orderbook"
)

// Key schema:
//
//   bal:<address>                     → Balances (symbol → qty, JSON)
//   ord:<symbol>:<side>:<id>          → resting Order (JSON)
//   fill:<symbol>:<timestamp>:<id>    → Fill (JSON)
//   seq                               → next order ID (8-byte big endian)
//
// Order IDs and fill timestamps are zero-padded (20 digits) so prefix scans
// return entries in creation order.

const (
	prefixBalance = "bal:"
	prefixOrder   = "ord:"
	prefixFill    = "fill:"
)

func balanceKey(addr common.Address) []byte {
	return []byte(prefixBalance + addr.Hex())
}

func balancePrefix() []byte {
	return []byte(prefixBalance)
}

// addrFromBalanceKey recovers the account address from a balance key.
func addrFromBalanceKey(key []byte) common.Address {
	return common.HexToAddress(string(key[len(prefixBalance):]))
}

func orderKey(symbol string, side orderbook.Side, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d", prefixOrder, symbol, side, id))
}

func orderPrefix() []byte {
	return []byte(prefixOrder)
}

func fillKey(symbol string, timestamp int64, makerOrderID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%d", prefixFill, symbol, timestamp, makerOrderID))
}

func fillPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixFill, symbol))
}

func sequenceKey() []byte { return []byte("seq") }

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
