package domain

import "context"

// StockRepository is the data-access contract for stock records. Symbols
// passed in may be in any case; implementations normalize them.
//
// Create and Update return a *ConflictError (errors.Is ErrStockExists) on a
// symbol collision. Update and Delete return ErrStockNotFound when no record
// matches, as does FindBySymbol.
type StockRepository interface {
	List(ctx context.Context, filter StockFilter) ([]Stock, error)
	FindBySymbol(ctx context.Context, symbol string) (*Stock, error)
	Create(ctx context.Context, in StockCreate) (*Stock, error)
	Update(ctx context.Context, symbol string, patch StockUpdate) (*Stock, error)
	Delete(ctx context.Context, symbol string) (*Stock, error)
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]Stock, error)
}
