package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotOnboarded is returned when an operation references a token symbol
// that was never registered.
var ErrNotOnboarded = errors.New("token not onboarded")

// Token maps a trading symbol to its ERC-20 contract address.
type Token struct {
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
}

// Registry holds the set of onboarded tokens in a thread-safe manner.
// Limit orders may only reference symbols present here; the native asset
// is implicit and never registered.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]Token)}
}

// AddToken onboards a new token symbol.
// Returns an error if the symbol is empty or already registered.
func (r *Registry) AddToken(symbol string, addr common.Address) error {
	if symbol == "" {
		return fmt.Errorf("token symbol cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[symbol]; exists {
		return fmt.Errorf("token %s already onboarded", symbol)
	}

	r.tokens[symbol] = Token{Symbol: symbol, Address: addr}
	return nil
}

// IsOnboarded reports whether symbol is registered.
func (r *Registry) IsOnboarded(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tokens[symbol]
	return exists
}

// Get returns the token for symbol, or ErrNotOnboarded.
func (r *Registry) Get(symbol string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tokens[symbol]
	if !exists {
		return Token{}, fmt.Errorf("%w: %s", ErrNotOnboarded, symbol)
	}
	return t, nil
}

// List returns all onboarded tokens sorted by symbol.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Count returns the number of onboarded tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
