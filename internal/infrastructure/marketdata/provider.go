package marketdata

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuoteUnavailable wraps every failure to obtain a usable price or
	// payload from an upstream market data API.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrHistoricalUnsupported is returned when the configured provider has no
	// historical data endpoint.
	ErrHistoricalUnsupported = errors.New("historical prices not supported by provider")
)

type QuoteResult struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string
	Time     string
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*QuoteResult, error)
}

type HistoricalProvider interface {
	HistoricalPrices(ctx context.Context) (json.RawMessage, error)
}
