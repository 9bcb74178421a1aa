package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
)

// StockRepository keeps records in a map keyed by normalized symbol. It is
// the process-local backing used when no database is configured.
type StockRepository struct {
	mu     sync.RWMutex
	stocks map[string]domain.Stock
	nextID int64
	now    func() time.Time
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		stocks: make(map[string]domain.Stock),
		now:    time.Now,
	}
}

func (r *StockRepository) List(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stocks := make([]domain.Stock, 0, len(r.stocks))
	switch {
	case filter.Symbol != nil:
		if s, ok := r.stocks[domain.NormalizeSymbol(*filter.Symbol)]; ok {
			stocks = append(stocks, s)
		}
	case filter.ID != nil:
		for _, s := range r.stocks {
			if s.ID == *filter.ID {
				stocks = append(stocks, s)
			}
		}
	default:
		for _, s := range r.stocks {
			stocks = append(stocks, s)
		}
	}

	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
	return stocks, nil
}

func (r *StockRepository) FindBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stock, ok := r.stocks[domain.NormalizeSymbol(symbol)]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return &stock, nil
}

func (r *StockRepository) Create(ctx context.Context, in domain.StockCreate) (*domain.Stock, error) {
	in = in.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stocks[in.Symbol]; exists {
		return nil, &domain.ConflictError{Symbol: in.Symbol}
	}

	r.nextID++
	stock := domain.Stock{
		ID:        r.nextID,
		Symbol:    in.Symbol,
		Quantity:  in.Quantity,
		CreatedAt: r.now(),
	}
	r.stocks[stock.Symbol] = stock
	return &stock, nil
}

func (r *StockRepository) Update(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error) {
	key := domain.NormalizeSymbol(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.stocks[key]
	if !ok {
		return nil, domain.ErrStockNotFound
	}

	updated, renamed := current.Apply(patch)
	if renamed {
		if _, taken := r.stocks[updated.Symbol]; taken {
			return nil, &domain.ConflictError{Symbol: updated.Symbol, Rename: true}
		}
		delete(r.stocks, key)
	}
	r.stocks[updated.Symbol] = updated
	return &updated, nil
}

func (r *StockRepository) Delete(ctx context.Context, symbol string) (*domain.Stock, error) {
	key := domain.NormalizeSymbol(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()

	stock, ok := r.stocks[key]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	delete(r.stocks, key)
	return &stock, nil
}

func (r *StockRepository) ListRecent(ctx context.Context, limit int) ([]domain.Stock, error) {
	stocks, err := r.List(ctx, domain.StockFilter{})
	if err != nil {
		return nil, err
	}

	// Same ordering as the SQL backing: created_at DESC, then stock_id DESC.
	sort.SliceStable(stocks, func(i, j int) bool {
		a, b := stocks[i], stocks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if limit >= 0 && len(stocks) > limit {
		stocks = stocks[:limit]
	}
	return stocks, nil
}
