package api

// Request/response types for the REST endpoints and WebSocket messages.

// ==============================
// REST types
// ==============================

type TokenInfo struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"` // ERC-20 contract, 0x-hex
}

type AddTokenRequest struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type OrderInfo struct {
	ID        uint64 `json:"id"`
	Trader    string `json:"trader"`
	Side      string `json:"side"` // "buy" or "sell"
	Symbol    string `json:"symbol"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
	Filled    int64  `json:"filled"`
	Remaining int64  `json:"remaining"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
}

type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

type BookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"` // best (highest) first
	Asks      []PriceLevel `json:"asks"` // best (lowest) first
	Timestamp int64        `json:"timestamp"`
}

type LimitOrderRequest struct {
	Trader string `json:"trader"`
	Side   string `json:"side"`
	Symbol string `json:"symbol"`
	Amount int64  `json:"amount"`
	Price  int64  `json:"price"`
}

type MarketOrderRequest struct {
	Trader string `json:"trader"`
	Side   string `json:"side"`
	Symbol string `json:"symbol"`
	Amount int64  `json:"amount"`
}

type MarketOrderResponse struct {
	Requested int64       `json:"requested"`
	Filled    int64       `json:"filled"`
	Fills     []TradeInfo `json:"fills"`
}

type TradeInfo struct {
	MakerOrderID uint64 `json:"makerOrderId"`
	Symbol       string `json:"symbol"`
	Price        int64  `json:"price"`
	Qty          int64  `json:"qty"`
	Taker        string `json:"taker"`
	Maker        string `json:"maker"`
	TakerSide    string `json:"takerSide"`
	Timestamp    int64  `json:"timestamp"`
}

type BalancesResponse struct {
	Address  string           `json:"address"`
	Balances map[string]int64 `json:"balances"`
}

type TransferRequest struct {
	Symbol string `json:"symbol"`
	Amount int64  `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket types
// ==============================

type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type BookUpdate struct {
	Type      string       `json:"type"` // "orderbook"
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}

type TradeUpdate struct {
	Type string `json:"type"` // "trade"
	TradeInfo
}
