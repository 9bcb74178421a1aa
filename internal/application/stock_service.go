package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
)

// StockService holds the record CRUD use cases. Storage errors pass through
// unchanged so callers can classify them with errors.Is.
type StockService struct {
	repo domain.StockRepository
}

func NewStockService(repo domain.StockRepository) *StockService {
	return &StockService{repo: repo}
}

func (s *StockService) List(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error) {
	stocks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, nil
}

func (s *StockService) Get(ctx context.Context, symbol string) (*domain.Stock, error) {
	return s.repo.FindBySymbol(ctx, symbol)
}

func (s *StockService) Create(ctx context.Context, in domain.StockCreate) (*domain.Stock, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	stock, err := s.repo.Create(ctx, in.Normalize())
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Stock created", "stock_id", stock.ID, "symbol", stock.Symbol, "quantity", stock.Quantity)
	return stock, nil
}

func (s *StockService) Update(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	stock, err := s.repo.Update(ctx, symbol, patch)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Stock updated", "stock_id", stock.ID, "symbol", stock.Symbol, "quantity", stock.Quantity)
	return stock, nil
}

func (s *StockService) Delete(ctx context.Context, symbol string) (*domain.Stock, error) {
	stock, err := s.repo.Delete(ctx, symbol)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Stock deleted", "stock_id", stock.ID, "symbol", stock.Symbol)
	return stock, nil
}
