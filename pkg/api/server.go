package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"spotdex/pkg/dex/engine"
	"spotdex/pkg/dex/market"
	"spotdex/pkg/dex/orderbook"
	"spotdex/pkg/dex/wallet"
)

// Server exposes the exchange over REST and WebSocket.
type Server struct {
	exchange *engine.Exchange
	router   *mux.Router
	hub      *Hub
	origins  []string
}

// NewServer creates an API server around the exchange.
func NewServer(exchange *engine.Exchange, allowedOrigins []string) *Server {
	s := &Server{
		exchange: exchange,
		router:   mux.NewRouter(),
		hub:      NewHub(),
		origins:  allowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Token registry
	api.HandleFunc("/tokens", s.handleListTokens).Methods("GET")
	api.HandleFunc("/tokens", s.handleAddToken).Methods("POST")

	// Books
	api.HandleFunc("/books/{symbol}", s.handleGetDepth).Methods("GET")
	api.HandleFunc("/books/{symbol}/{side}", s.handleGetOrderBook).Methods("GET")

	// Orders
	api.HandleFunc("/orders/limit", s.handleLimitOrder).Methods("POST")
	api.HandleFunc("/orders/market", s.handleMarketOrder).Methods("POST")

	// Accounts
	api.HandleFunc("/accounts/{address}/balances", s.handleGetBalances).Methods("GET")
	api.HandleFunc("/accounts/{address}/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/accounts/{address}/withdraw", s.handleWithdraw).Methods("POST")

	// Trade tape
	api.HandleFunc("/trades/{symbol}", s.handleGetTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the HTTP handler with CORS applied. Exposed for tests.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the WebSocket hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.exchange.Tokens().List()
	out := make([]TokenInfo, len(tokens))
	for i, t := range tokens {
		out[i] = TokenInfo{Symbol: t.Symbol, Address: t.Address.Hex()}
	}
	respondJSON(w, out)
}

func (s *Server) handleAddToken(w http.ResponseWriter, r *http.Request) {
	var req AddTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) {
		respondError(w, http.StatusBadRequest, "invalid contract address", req.Address)
		return
	}
	if err := s.exchange.AddToken(req.Symbol, common.HexToAddress(req.Address)); err != nil {
		respondError(w, http.StatusConflict, "cannot onboard token", err.Error())
		return
	}
	respondJSON(w, TokenInfo{Symbol: req.Symbol, Address: common.HexToAddress(req.Address).Hex()})
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	bids, asks := s.exchange.Depth(symbol)
	respondJSON(w, BookSnapshot{
		Symbol:    symbol,
		Bids:      toPriceLevels(bids),
		Asks:      toPriceLevels(asks),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	side, err := orderbook.ParseSide(vars["side"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}

	orders := s.exchange.OrderBook(vars["symbol"], side)
	out := make([]OrderInfo, len(orders))
	for i := range orders {
		out[i] = toOrderInfo(&orders[i])
	}
	respondJSON(w, out)
}

func (s *Server) handleLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req LimitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	trader, side, ok := s.parseTraderSide(w, req.Trader, req.Side)
	if !ok {
		return
	}

	order, err := s.exchange.CreateLimitOrder(trader, side, req.Symbol, req.Amount, req.Price)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.broadcastBook(req.Symbol)
	respondJSON(w, toOrderInfo(&order))
}

func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req MarketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	trader, side, ok := s.parseTraderSide(w, req.Trader, req.Side)
	if !ok {
		return
	}

	fills, err := s.exchange.ExecuteMarketOrder(trader, side, req.Symbol, req.Amount)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := MarketOrderResponse{Requested: req.Amount, Fills: make([]TradeInfo, len(fills))}
	for i, f := range fills {
		resp.Filled += f.Qty
		resp.Fills[i] = toTradeInfo(f)
		s.hub.BroadcastToChannel("trades:"+f.Symbol, TradeUpdate{Type: "trade", TradeInfo: resp.Fills[i]})
	}
	if len(fills) > 0 {
		s.broadcastBook(req.Symbol)
	}
	respondJSON(w, resp)
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	addrHex := mux.Vars(r)["address"]
	if !common.IsHexAddress(addrHex) {
		respondError(w, http.StatusBadRequest, "invalid address", addrHex)
		return
	}
	addr := common.HexToAddress(addrHex)
	respondJSON(w, BalancesResponse{
		Address:  addr.Hex(),
		Balances: s.exchange.Ledger().Balances(addr),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, s.exchange.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, s.exchange.Withdraw)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, apply func(common.Address, string, int64) error) {
	addrHex := mux.Vars(r)["address"]
	if !common.IsHexAddress(addrHex) {
		respondError(w, http.StatusBadRequest, "invalid address", addrHex)
		return
	}
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	addr := common.HexToAddress(addrHex)
	if err := apply(addr, req.Symbol, req.Amount); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, BalancesResponse{
		Address:  addr.Hex(),
		Balances: s.exchange.Ledger().Balances(addr),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	fills := s.exchange.RecentFills(symbol, limit)
	out := make([]TradeInfo, len(fills))
	for i, f := range fills {
		out[i] = toTradeInfo(f)
	}
	respondJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) parseTraderSide(w http.ResponseWriter, traderHex, sideStr string) (common.Address, orderbook.Side, bool) {
	if !common.IsHexAddress(traderHex) {
		respondError(w, http.StatusBadRequest, "invalid trader address", traderHex)
		return common.Address{}, 0, false
	}
	side, err := orderbook.ParseSide(sideStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return common.Address{}, 0, false
	}
	return common.HexToAddress(traderHex), side, true
}

func (s *Server) broadcastBook(symbol string) {
	bids, asks := s.exchange.Depth(symbol)
	s.hub.BroadcastToChannel("orderbook:"+symbol, BookUpdate{
		Type:      "orderbook",
		Symbol:    symbol,
		Bids:      toPriceLevels(bids),
		Asks:      toPriceLevels(asks),
		Timestamp: time.Now().UnixMilli(),
	})
}

func toOrderInfo(o *orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:        o.ID,
		Trader:    o.Trader.Hex(),
		Side:      o.Side.String(),
		Symbol:    o.Symbol,
		Price:     o.Price,
		Amount:    o.Amount,
		Filled:    o.Filled,
		Remaining: o.Remaining(),
		CreatedAt: o.CreatedAt,
	}
}

func toTradeInfo(f orderbook.Fill) TradeInfo {
	return TradeInfo{
		MakerOrderID: f.MakerOrderID,
		Symbol:       f.Symbol,
		Price:        f.Price,
		Qty:          f.Qty,
		Taker:        f.Taker.Hex(),
		Maker:        f.Maker.Hex(),
		TakerSide:    f.TakerSide.String(),
		Timestamp:    f.Timestamp,
	}
}

func toPriceLevels(levels []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Qty: l.Qty}
	}
	return out
}

func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "insufficient balance", err.Error())
	case errors.Is(err, market.ErrNotOnboarded):
		respondError(w, http.StatusNotFound, "token not onboarded", err.Error())
	case errors.Is(err, engine.ErrInvariantViolation):
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	default:
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
