package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmanzanog/portfolio-tracker/internal/application"
	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata"
)

const (
	msgStockNotFound = "Stock not found"
	msgStockExists   = "Stock already exists."
	msgInternal      = "Internal server error"
)

// StockService defines the interface for stock record operations
type StockService interface {
	List(ctx context.Context, filter domain.StockFilter) ([]domain.Stock, error)
	Get(ctx context.Context, symbol string) (*domain.Stock, error)
	Create(ctx context.Context, in domain.StockCreate) (*domain.Stock, error)
	Update(ctx context.Context, symbol string, patch domain.StockUpdate) (*domain.Stock, error)
	Delete(ctx context.Context, symbol string) (*domain.Stock, error)
}

// PortfolioService defines the interface for priced portfolio views
type PortfolioService interface {
	ViewPortfolio(ctx context.Context) ([]domain.PortfolioRow, error)
	HistoricalPrices(ctx context.Context) (json.RawMessage, error)
}

type Handler struct {
	stockService     StockService
	portfolioService PortfolioService
}

func NewHandler(stockService StockService, portfolioService PortfolioService) *Handler {
	return &Handler{
		stockService:     stockService,
		portfolioService: portfolioService,
	}
}

// Quantity is a pointer so that an explicit 0 passes "required".
type CreateStockRequest struct {
	Symbol   string `json:"symbol" binding:"required,symbol"`
	Quantity *int64 `json:"quantity" binding:"required,min=0"`
}

type UpdateStockRequest struct {
	Symbol   *string `json:"symbol" binding:"omitempty,symbol"`
	Quantity *int64  `json:"quantity" binding:"omitempty,min=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Index(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "/stocks")
}

func (h *Handler) ListStocks(c *gin.Context) {
	var filter domain.StockFilter

	if symbol, ok := c.GetQuery("symbol"); ok {
		filter.Symbol = &symbol
	}
	if raw, ok := c.GetQuery("stock_id"); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "stock_id must be an integer"})
			return
		}
		filter.ID = &id
	}

	stocks, err := h.stockService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, "Failed to list stocks", err)
		return
	}

	c.JSON(http.StatusOK, stocks)
}

func (h *Handler) GetStock(c *gin.Context) {
	symbol := c.Param("symbol")

	stock, err := h.stockService.Get(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, "Failed to get stock", err, "symbol", symbol)
		return
	}

	c.JSON(http.StatusOK, stock)
}

func (h *Handler) CreateStock(c *gin.Context) {
	var req CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	stock, err := h.stockService.Create(c.Request.Context(), domain.StockCreate{
		Symbol:   req.Symbol,
		Quantity: *req.Quantity,
	})
	if err != nil {
		writeError(c, "Failed to create stock", err, "symbol", req.Symbol)
		return
	}

	c.JSON(http.StatusOK, stock)
}

func (h *Handler) UpdateStock(c *gin.Context) {
	symbol := c.Param("symbol")

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	stock, err := h.stockService.Update(c.Request.Context(), symbol, domain.StockUpdate{
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(c, "Failed to update stock", err, "symbol", symbol)
		return
	}

	c.JSON(http.StatusOK, stock)
}

func (h *Handler) DeleteStock(c *gin.Context) {
	symbol := c.Param("symbol")

	stock, err := h.stockService.Delete(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, "Failed to delete stock", err, "symbol", symbol)
		return
	}

	c.JSON(http.StatusOK, stock)
}

func (h *Handler) ViewPortfolio(c *gin.Context) {
	rows, err := h.portfolioService.ViewPortfolio(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to build portfolio", err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *Handler) HistoricalPrices(c *gin.Context) {
	data, err := h.portfolioService.HistoricalPrices(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to fetch historical prices", err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps service errors onto status codes and the error body.
func writeError(c *gin.Context, msg string, err error, attrs ...any) {
	status, body := classify(err)

	attrs = append(attrs, "status", status, "error", err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), msg, attrs...)
	} else {
		slog.WarnContext(c.Request.Context(), msg, attrs...)
	}

	c.JSON(status, ErrorResponse{Error: body})
}

func classify(err error) (int, string) {
	var (
		conflict *domain.ConflictError
		quoteErr *application.QuoteError
	)

	switch {
	case errors.Is(err, domain.ErrStockNotFound):
		return http.StatusNotFound, msgStockNotFound
	case errors.As(err, &conflict):
		return http.StatusBadRequest, conflict.Error()
	case errors.Is(err, domain.ErrStockExists):
		return http.StatusBadRequest, msgStockExists
	case errors.Is(err, domain.ErrInvalidStock):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &quoteErr):
		return http.StatusBadGateway, fmt.Sprintf("Price lookup failed for %s", quoteErr.Symbol)
	case errors.Is(err, marketdata.ErrQuoteUnavailable):
		return http.StatusBadGateway, "Market data provider unavailable"
	case errors.Is(err, marketdata.ErrHistoricalUnsupported):
		return http.StatusNotImplemented, "Historical prices are not supported by the configured provider"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeBindError separates unreadable bodies (400) from bodies that decode
// but break a field rule (422).
func writeBindError(c *gin.Context, err error) {
	var (
		validationErrs validator.ValidationErrors
		typeErr        *json.UnmarshalTypeError
	)

	status := http.StatusBadRequest
	msg := "Invalid request body"

	switch {
	case errors.As(err, &validationErrs):
		status = http.StatusUnprocessableEntity
		msg = describeValidation(validationErrs)
	case errors.As(err, &typeErr):
		status = http.StatusUnprocessableEntity
		msg = fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)
	case errors.Is(err, io.EOF):
		msg = "Request body is required"
	}

	slog.WarnContext(c.Request.Context(), "Invalid request body", "status", status, "error", err)
	c.JSON(status, ErrorResponse{Error: msg})
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case symbolTag:
			parts = append(parts, fmt.Sprintf("%s must be %d-%d characters", fe.Field(), domain.MinSymbolLength, domain.MaxSymbolLength))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
