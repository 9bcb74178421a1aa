package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinSymbolLength = 1
	MaxSymbolLength = 10
)

var (
	ErrStockNotFound = errors.New("stock not found")
	ErrStockExists   = errors.New("stock already exists")
	ErrInvalidStock  = errors.New("invalid stock")
)

// ConflictError reports a symbol uniqueness violation. It unwraps to
// ErrStockExists.
type ConflictError struct {
	Symbol string
	// Rename is set when the conflict came from changing an existing
	// record's symbol rather than creating a new record.
	Rename bool
}

func (e *ConflictError) Error() string {
	if e.Rename {
		return fmt.Sprintf("Stock symbol '%s' already exists.", e.Symbol)
	}
	return "Stock already exists."
}

func (e *ConflictError) Unwrap() error {
	return ErrStockExists
}

// Stock is a persisted holding. ID is assigned by the store.
type Stock struct {
	ID        int64     `json:"stock_id"`
	Symbol    string    `json:"symbol"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"-"`
}

type StockCreate struct {
	Symbol   string
	Quantity int64
}

// StockUpdate is a partial update; nil fields keep the stored value.
type StockUpdate struct {
	Symbol   *string
	Quantity *int64
}

// StockFilter narrows a listing. Symbol wins over ID when both are set.
type StockFilter struct {
	Symbol *string
	ID     *int64
}

// NormalizeSymbol returns the canonical form used for storage and lookup.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether symbol has an acceptable length once trimmed.
func ValidSymbol(symbol string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(symbol))
	return n >= MinSymbolLength && n <= MaxSymbolLength
}

func (c StockCreate) Validate() error {
	if !ValidSymbol(c.Symbol) {
		return fmt.Errorf("%w: symbol must be %d-%d characters", ErrInvalidStock, MinSymbolLength, MaxSymbolLength)
	}
	if c.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", ErrInvalidStock)
	}
	return nil
}

func (c StockCreate) Normalize() StockCreate {
	c.Symbol = NormalizeSymbol(c.Symbol)
	return c
}

func (u StockUpdate) Validate() error {
	if u.Symbol != nil && !ValidSymbol(*u.Symbol) {
		return fmt.Errorf("%w: symbol must be %d-%d characters", ErrInvalidStock, MinSymbolLength, MaxSymbolLength)
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be non-negative", ErrInvalidStock)
	}
	return nil
}

// Apply returns a copy of s with the provided fields replaced. The returned
// bool is true when the symbol actually changes.
func (s Stock) Apply(u StockUpdate) (Stock, bool) {
	renamed := false
	if u.Symbol != nil {
		next := NormalizeSymbol(*u.Symbol)
		renamed = next != s.Symbol
		s.Symbol = next
	}
	if u.Quantity != nil {
		s.Quantity = *u.Quantity
	}
	return s, renamed
}
