package application

import (
	"context"
	"errors"
	"testing"

	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockStockRepository struct {
	listFunc         func(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error)
	findBySymbolFunc func(ctx context.Context, symbol string) (*domain.Stock, error)
	createFunc       func(ctx context.Context, in domain.StockCreate) (*domain.Stock, error)
	updateFunc       func(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error)
	deleteFunc       func(ctx context.Context, symbol string) (*domain.Stock, error)
	listRecentFunc   func(ctx context.Context, limit int) ([]domain.Stock, error)
}

func (m *mockStockRepository) List(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []domain.Stock{}, nil
}

func (m *mockStockRepository) FindBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	if m.findBySymbolFunc != nil {
		return m.findBySymbolFunc(ctx, symbol)
	}
	return nil, domain.ErrStockNotFound
}

func (m *mockStockRepository) Create(ctx context.Context, in domain.StockCreate) (*domain.Stock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return &domain.Stock{ID: 1, Symbol: in.Symbol, Quantity: in.Quantity}, nil
}

func (m *mockStockRepository) Update(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, symbol, patch)
	}
	return nil, domain.ErrStockNotFound
}

func (m *mockStockRepository) Delete(ctx context.Context, symbol string) (*domain.Stock, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, symbol)
	}
	return nil, domain.ErrStockNotFound
}

func (m *mockStockRepository) ListRecent(ctx context.Context, limit int) ([]domain.Stock, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, limit)
	}
	return []domain.Stock{}, nil
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestStockService_Create_NormalizesSymbol(t *testing.T) {
	var got domain.StockCreate
	repo := &mockStockRepository{
		createFunc: func(_ context.Context, in domain.StockCreate) (*domain.Stock, error) {
			got = in
			return &domain.Stock{ID: 7, Symbol: in.Symbol, Quantity: in.Quantity}, nil
		},
	}
	service := NewStockService(repo)

	stock, err := service.Create(context.Background(), domain.StockCreate{Symbol: " aapl ", Quantity: 5})

	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, &domain.Stock{ID: 7, Symbol: "AAPL", Quantity: 5}, stock)
}

func TestStockService_Create_Invalid(t *testing.T) {
	called := false
	repo := &mockStockRepository{
		createFunc: func(_ context.Context, in domain.StockCreate) (*domain.Stock, error) {
			called = true
			return nil, nil
		},
	}
	service := NewStockService(repo)

	tests := []struct {
		name string
		in   domain.StockCreate
	}{
		{"empty symbol", domain.StockCreate{Symbol: "", Quantity: 1}},
		{"blank symbol", domain.StockCreate{Symbol: "   ", Quantity: 1}},
		{"symbol too long", domain.StockCreate{Symbol: "ABCDEFGHIJK", Quantity: 1}},
		{"negative quantity", domain.StockCreate{Symbol: "AAPL", Quantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidStock)
		})
	}
	assert.False(t, called, "repository must not be reached with invalid input")
}

func TestStockService_Create_ConflictPassesThrough(t *testing.T) {
	repo := &mockStockRepository{
		createFunc: func(_ context.Context, in domain.StockCreate) (*domain.Stock, error) {
			return nil, &domain.ConflictError{Symbol: in.Symbol}
		},
	}
	service := NewStockService(repo)

	_, err := service.Create(context.Background(), domain.StockCreate{Symbol: "AAPL", Quantity: 1})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Stock already exists.", conflict.Error())
}

func TestStockService_Update_Invalid(t *testing.T) {
	service := NewStockService(&mockStockRepository{})

	_, err := service.Update(context.Background(), "AAPL", domain.StockUpdate{Symbol: ptr("")})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = service.Update(context.Background(), "AAPL", domain.StockUpdate{Quantity: ptr(int64(-3))})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestStockService_List_WrapsErrors(t *testing.T) {
	repo := &mockStockRepository{
		listFunc: func(_ context.Context, _ domain.StockFilter) ([]domain.Stock, error) {
			return nil, errors.New("db down")
		},
	}
	service := NewStockService(repo)

	_, err := service.List(context.Background(), domain.StockFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list stocks")
	assert.Contains(t, err.Error(), "db down")
}

func TestStockService_Lifecycle(t *testing.T) {
	service := NewStockService(memory.NewStockRepository())
	ctx := context.Background()

	created, err := service.Create(ctx, domain.StockCreate{Symbol: "aapl", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, int64(5), created.Quantity)

	_, err = service.Create(ctx, domain.StockCreate{Symbol: "Aapl", Quantity: 9})
	assert.ErrorIs(t, err, domain.ErrStockExists)

	stored, err := service.Get(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Quantity, "failed create must leave the record unchanged")

	updated, err := service.Update(ctx, "AAPL", domain.StockUpdate{Quantity: ptr(int64(10))})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", updated.Symbol)
	assert.Equal(t, int64(10), updated.Quantity)

	renamed, err := service.Update(ctx, "AAPL", domain.StockUpdate{Symbol: ptr("aapl.l")})
	require.NoError(t, err)
	assert.Equal(t, "AAPL.L", renamed.Symbol)
	assert.Equal(t, int64(10), renamed.Quantity)
	assert.Equal(t, created.ID, renamed.ID)

	all, err := service.List(ctx, domain.StockFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	deleted, err := service.Delete(ctx, "aapl.l")
	require.NoError(t, err)
	assert.Equal(t, renamed, deleted)

	_, err = service.Get(ctx, "AAPL.L")
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}
