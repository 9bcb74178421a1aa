package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/portfolio-tracker/internal/application"
	"github.com/jmanzanog/portfolio-tracker/internal/domain"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/config"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/alphavantage"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/finnhub"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/twelvedata"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/metrics"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/sqldb"
	httpHandler "github.com/jmanzanog/portfolio-tracker/internal/interfaces/http"
	"github.com/joho/godotenv"
	_ "github.com/sijms/go-ora/v2"
)

// setupLogger configures and returns a structured logger with source information
func setupLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initializeStore opens the configured stock store. The returned close func
// releases the underlying connection pool, if any.
func initializeStore(ctx context.Context, cfg *config.Config) (domain.StockRepository, func() error, error) {
	if cfg.DBDriver == config.DBDriverMemory {
		slog.Warn("Using in-memory store, records are lost on restart")
		return memory.NewStockRepository(), func() error { return nil }, nil
	}

	db, err := sqldb.Open(ctx, cfg.DBDriver, cfg.DBDSN, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Migrate(migrateCtx); err != nil {
		_ = db.Close() // Close connection if migration fails
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return sqldb.NewRepository(db), db.Close, nil
}

// createQuoteProvider creates the market data client named by the configuration
func createQuoteProvider(cfg *config.Config) marketdata.QuoteProvider {
	switch cfg.MarketDataProvider {
	case config.MarketDataProviderFinnhub:
		return finnhub.NewClient(cfg.FinnhubAPIKey, cfg.QuoteTimeout)
	case config.MarketDataProviderTwelveData:
		return twelvedata.NewClient(cfg.TwelveDataAPIKey, cfg.QuoteTimeout)
	default:
		return alphavantage.NewClient(cfg.AlphaVantageAPIKey, cfg.QuoteTimeout)
	}
}

// buildServer creates and configures the HTTP server with all routes and handlers
func buildServer(cfg *config.Config, stockService httpHandler.StockService, portfolioService httpHandler.PortfolioService) (*http.Server, error) {
	m := metrics.New()

	router := gin.New()
	router.Use(gin.Recovery(), httpHandler.RequestID(), httpHandler.RequestLogger())
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(httpHandler.CORS(cfg.CORSAllowedOrigins))
	}
	router.Use(m.Middleware())

	handler := httpHandler.NewHandler(stockService, portfolioService)
	if err := httpHandler.SetupRoutes(router, handler, m); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// App wraps the application components for easier testing
type App struct {
	Server     *http.Server
	CloseStore func() error
}

// Shutdown stops accepting requests, drains in-flight ones, then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	serverErr := a.Server.Shutdown(ctx)
	if serverErr != nil {
		serverErr = fmt.Errorf("server shutdown error: %w", serverErr)
	}

	var storeErr error
	if a.CloseStore != nil {
		if err := a.CloseStore(); err != nil {
			storeErr = fmt.Errorf("store close error: %w", err)
		}
	}

	return errors.Join(serverErr, storeErr)
}

// run contains the main application logic without os.Exit calls
func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogger(cfg.LogLevel)

	quotes := createQuoteProvider(cfg)
	slog.Info("Using market data provider", "provider", cfg.MarketDataProvider)

	repo, closeStore, err := initializeStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	slog.Info("Stock store ready", "driver", cfg.DBDriver)

	stockService := application.NewStockService(repo)
	portfolioService := application.NewPortfolioService(repo, quotes, cfg.PortfolioConcurrency)

	server, err := buildServer(cfg, stockService, portfolioService)
	if err != nil {
		_ = closeStore()
		return err
	}

	app := &App{
		Server:     server,
		CloseStore: closeStore,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		_ = closeStore()
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
