package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata"
	"golang.org/x/sync/errgroup"
)

const DefaultQuoteConcurrency = 4

// QuoteError identifies the holding whose price lookup failed. It unwraps to
// the provider error, which in turn wraps marketdata.ErrQuoteUnavailable.
type QuoteError struct {
	Symbol string
	Err    error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("failed to get quote for %s: %v", e.Symbol, e.Err)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

type PortfolioService struct {
	repo        domain.StockRepository
	quotes      marketdata.QuoteProvider
	concurrency int
}

func NewPortfolioService(repo domain.StockRepository, quotes marketdata.QuoteProvider, concurrency int) *PortfolioService {
	if concurrency <= 0 {
		concurrency = DefaultQuoteConcurrency
	}
	return &PortfolioService{
		repo:        repo,
		quotes:      quotes,
		concurrency: concurrency,
	}
}

// ViewPortfolio prices the most recent holdings. Quotes are fetched
// concurrently but rows keep the repository order. The first failed quote
// cancels the rest and fails the whole view.
func (s *PortfolioService) ViewPortfolio(ctx context.Context) ([]domain.PortfolioRow, error) {
	stocks, err := s.repo.ListRecent(ctx, domain.PortfolioSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent stocks: %w", err)
	}

	rows := make([]domain.PortfolioRow, len(stocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, stock := range stocks {
		g.Go(func() error {
			row, err := s.priceStock(gctx, stock)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to build portfolio", "error", err)
		return nil, err
	}

	return rows, nil
}

func (s *PortfolioService) priceStock(ctx context.Context, stock domain.Stock) (domain.PortfolioRow, error) {
	quote, err := s.quotes.GetQuote(ctx, stock.Symbol)
	if err != nil {
		if !errors.Is(err, marketdata.ErrQuoteUnavailable) {
			err = fmt.Errorf("%w: %w", marketdata.ErrQuoteUnavailable, err)
		}
		return domain.PortfolioRow{}, &QuoteError{Symbol: stock.Symbol, Err: err}
	}

	// Convert shopspring decimal (from marketdata) to domain decimal
	price, err := domain.NewDecimalFromString(quote.Price.String())
	if err != nil {
		return domain.PortfolioRow{}, &QuoteError{
			Symbol: stock.Symbol,
			Err:    fmt.Errorf("%w: failed to parse quote price: %w", marketdata.ErrQuoteUnavailable, err),
		}
	}

	return domain.NewPortfolioRow(stock, price)
}

// HistoricalPrices proxies the provider's historical payload when it has one.
func (s *PortfolioService) HistoricalPrices(ctx context.Context) (json.RawMessage, error) {
	provider, ok := s.quotes.(marketdata.HistoricalProvider)
	if !ok {
		return nil, marketdata.ErrHistoricalUnsupported
	}

	data, err := provider.HistoricalPrices(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch historical prices", "error", err)
		return nil, err
	}
	return data, nil
}
