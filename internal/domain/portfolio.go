package domain

import "fmt"

// PortfolioSize bounds how many records the portfolio view prices per
// request, since every row costs one quote API call.
const PortfolioSize = 10

// PortfolioRow is a stored holding joined with a live price. It is never
// persisted.
type PortfolioRow struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Price    Decimal `json:"price"`
}

func NewPortfolioRow(stock Stock, price Decimal) (PortfolioRow, error) {
	rounded, err := price.Round(PriceScale)
	if err != nil {
		return PortfolioRow{}, fmt.Errorf("rounding price for %s: %w", stock.Symbol, err)
	}
	return PortfolioRow{
		Symbol:   stock.Symbol,
		Quantity: stock.Quantity,
		Price:    rounded,
	}, nil
}
