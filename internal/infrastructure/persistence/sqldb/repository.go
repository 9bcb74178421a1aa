package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
)

const stockColumns = "stock_id, symbol, quantity, created_at"

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Repository implements domain.StockRepository on a relational table.
type Repository struct {
	db  *DB
	now func() time.Time
}

func NewRepository(db *DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) List(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error) {
	query := "SELECT " + stockColumns + " FROM stocks"
	var args []any

	switch {
	case filter.Symbol != nil:
		query += " WHERE symbol = $1"
		args = append(args, domain.NormalizeSymbol(*filter.Symbol))
	case filter.ID != nil:
		query += " WHERE stock_id = $1"
		args = append(args, *filter.ID)
	}
	query += " ORDER BY stock_id"

	stocks, err := r.queryStocks(ctx, r.db, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list stocks", "error", err)
		return nil, fmt.Errorf("querying stocks: %w", err)
	}
	return stocks, nil
}

func (r *Repository) FindBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	symbol = domain.NormalizeSymbol(symbol)

	stocks, err := r.queryStocks(ctx, r.db, "SELECT "+stockColumns+" FROM stocks WHERE symbol = $1", symbol)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to find stock", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("querying stock %s: %w", symbol, err)
	}
	if len(stocks) == 0 {
		slog.DebugContext(ctx, "Stock not found", "symbol", symbol)
		return nil, domain.ErrStockNotFound
	}
	return &stocks[0], nil
}

func (r *Repository) Create(ctx context.Context, in domain.StockCreate) (*domain.Stock, error) {
	in = in.Normalize()
	stock := domain.Stock{
		Symbol:    in.Symbol,
		Quantity:  in.Quantity,
		CreatedAt: r.now(),
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.lockBySymbol(ctx, tx, stock.Symbol)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.ConflictError{Symbol: stock.Symbol}
		}

		id, err := r.db.Dialect.InsertStock(ctx, tx, &stock)
		if err != nil {
			if r.db.Dialect.IsUniqueViolation(err) {
				return &domain.ConflictError{Symbol: stock.Symbol}
			}
			slog.ErrorContext(ctx, "Failed to insert stock", "symbol", stock.Symbol, "error", err)
			return fmt.Errorf("insert stock: %w", err)
		}
		stock.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stock, nil
}

func (r *Repository) Update(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error) {
	symbol = domain.NormalizeSymbol(symbol)
	var updated domain.Stock

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := r.lockBySymbol(ctx, tx, symbol)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrStockNotFound
		}

		var renamed bool
		updated, renamed = current.Apply(patch)
		if renamed {
			taken, err := r.lockBySymbol(ctx, tx, updated.Symbol)
			if err != nil {
				return err
			}
			if taken != nil {
				return &domain.ConflictError{Symbol: updated.Symbol, Rename: true}
			}
		}

		query := r.db.Dialect.Rebind("UPDATE stocks SET symbol = $1, quantity = $2 WHERE stock_id = $3")
		if _, err := tx.ExecContext(ctx, query, updated.Symbol, updated.Quantity, updated.ID); err != nil {
			if r.db.Dialect.IsUniqueViolation(err) {
				return &domain.ConflictError{Symbol: updated.Symbol, Rename: true}
			}
			slog.ErrorContext(ctx, "Failed to update stock", "stock_id", updated.ID, "error", err)
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *Repository) Delete(ctx context.Context, symbol string) (*domain.Stock, error) {
	symbol = domain.NormalizeSymbol(symbol)
	var deleted *domain.Stock

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := r.lockBySymbol(ctx, tx, symbol)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrStockNotFound
		}

		query := r.db.Dialect.Rebind("DELETE FROM stocks WHERE stock_id = $1")
		if _, err := tx.ExecContext(ctx, query, current.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to delete stock", "stock_id", current.ID, "error", err)
			return fmt.Errorf("delete stock: %w", err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Stock, error) {
	query := "SELECT " + stockColumns + " FROM stocks ORDER BY created_at DESC, stock_id DESC " + r.db.Dialect.Limit(1)

	stocks, err := r.queryStocks(ctx, r.db, query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list recent stocks", "limit", limit, "error", err)
		return nil, fmt.Errorf("querying recent stocks: %w", err)
	}
	return stocks, nil
}

// lockBySymbol reads a row inside tx with a row lock. A missing row is
// reported as (nil, nil).
func (r *Repository) lockBySymbol(ctx context.Context, tx *sql.Tx, symbol string) (*domain.Stock, error) {
	stocks, err := r.queryStocks(ctx, tx, "SELECT "+stockColumns+" FROM stocks WHERE symbol = $1 FOR UPDATE", symbol)
	if err != nil {
		return nil, fmt.Errorf("locking stock %s: %w", symbol, err)
	}
	if len(stocks) == 0 {
		return nil, nil
	}
	return &stocks[0], nil
}

func (r *Repository) queryStocks(ctx context.Context, q queryer, query string, args ...any) ([]domain.Stock, error) {
	rows, err := q.QueryContext(ctx, r.db.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			slog.Error("Failed to close rows", "error", err)
		}
	}(rows)

	stocks := make([]domain.Stock, 0)
	for rows.Next() {
		var s domain.Stock
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Quantity, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stocks, nil
}

var _ domain.StockRepository = (*Repository)(nil)
