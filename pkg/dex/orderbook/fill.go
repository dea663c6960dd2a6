package orderbook

import "github.com/ethereum/go-ethereum/common"

// Fill is one matching step between a market (taker) order and a resting
// limit (maker) order. Price is always the maker's posted price.
type Fill struct {
	MakerOrderID uint64         `json:"makerOrderId"`
	Symbol       string         `json:"symbol"`
	Price        int64          `json:"price"`
	Qty          int64          `json:"qty"`
	Taker        common.Address `json:"taker"`
	Maker        common.Address `json:"maker"`
	TakerSide    Side           `json:"takerSide"`
	Timestamp    int64          `json:"timestamp"` // Unix milliseconds
}

// Notional returns the native-asset amount exchanged in this fill.
func (f Fill) Notional() int64 { return f.Price * f.Qty }
