package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/portfolio-tracker/internal/application"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/config"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/alphavantage"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/finnhub"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata/twelvedata"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/memory"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/persistence/sqldb"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestMain silences logging and gin debug output for the whole package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func TestSetupLogger(t *testing.T) {
	prevLogger := slog.Default()
	defer slog.SetDefault(prevLogger)

	logger := setupLogger("debug")

	if logger == nil {
		t.Fatal("setupLogger returned nil logger")
	}
	if slog.Default() != logger {
		t.Error("setupLogger did not set the logger as default")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range testCases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCreateQuoteProvider(t *testing.T) {
	testCases := []struct {
		provider string
		check    func(any) bool
	}{
		{config.MarketDataProviderAlphaVantage, func(p any) bool { _, ok := p.(*alphavantage.Client); return ok }},
		{config.MarketDataProviderFinnhub, func(p any) bool { _, ok := p.(*finnhub.Client); return ok }},
		{config.MarketDataProviderTwelveData, func(p any) bool { _, ok := p.(*twelvedata.Client); return ok }},
	}

	for _, tc := range testCases {
		t.Run(tc.provider, func(t *testing.T) {
			cfg := &config.Config{
				MarketDataProvider: tc.provider,
				QuoteTimeout:       time.Second,
			}

			provider := createQuoteProvider(cfg)

			if !tc.check(provider) {
				t.Errorf("unexpected provider type %T for %s", provider, tc.provider)
			}
		})
	}
}

func TestInitializeStore_Memory(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DBDriverMemory}

	repo, closeStore, err := initializeStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("initializeStore failed: %v", err)
	}
	if _, ok := repo.(*memory.StockRepository); !ok {
		t.Errorf("expected *memory.StockRepository, got %T", repo)
	}
	if err := closeStore(); err != nil {
		t.Errorf("close should be a no-op, got %v", err)
	}
}

func TestInitializeStore_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBDSN:    "some-connection-string",
	}

	repo, _, err := initializeStore(context.Background(), cfg)

	if err == nil {
		t.Fatal("expected error for unsupported driver, got nil")
	}
	if repo != nil {
		t.Errorf("expected nil repository, got %v", repo)
	}
	if !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("expected error to name the driver, got %q", err.Error())
	}
}

func TestInitializeStore_InvalidDSN(t *testing.T) {
	cfg := &config.Config{
		DBDriver: config.DBDriverPostgres,
		DBDSN:    "invalid-connection-string",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, _, err := initializeStore(ctx, cfg)

	if err == nil {
		t.Fatal("expected error for invalid DSN, got nil")
	}
	if repo != nil {
		t.Errorf("expected nil repository, got %v", repo)
	}
}

func newMemoryServices() (*application.StockService, *application.PortfolioService) {
	repo := memory.NewStockRepository()
	quotes := twelvedata.NewClient("test-api-key", time.Second)
	return application.NewStockService(repo), application.NewPortfolioService(repo, quotes, 2)
}

func TestBuildServer(t *testing.T) {
	stockService, portfolioService := newMemoryServices()
	cfg := &config.Config{
		ServerHost:         "localhost",
		ServerPort:         "8080",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}

	server, err := buildServer(cfg, stockService, portfolioService)
	if err != nil {
		t.Fatalf("buildServer failed: %v", err)
	}

	if server.Addr != "localhost:8080" {
		t.Errorf("expected server address %q, got %q", "localhost:8080", server.Addr)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status code 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header on the response")
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint to answer 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `request_count{endpoint="/health",method="get"} 1`) {
		t.Errorf("expected the health request to be counted, got:\n%s", w.Body.String())
	}
}

func TestBuildServer_DifferentPorts(t *testing.T) {
	testCases := []struct {
		name string
		host string
		port string
		want string
	}{
		{name: "default localhost", host: "localhost", port: "8080", want: "localhost:8080"},
		{name: "all interfaces", host: "0.0.0.0", port: "3000", want: "0.0.0.0:3000"},
		{name: "ipv6 loopback", host: "::1", port: "9090", want: "[::1]:9090"},
	}

	stockService, portfolioService := newMemoryServices()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{ServerHost: tc.host, ServerPort: tc.port}

			server, err := buildServer(cfg, stockService, portfolioService)
			if err != nil {
				t.Fatalf("buildServer failed: %v", err)
			}
			if server.Addr != tc.want {
				t.Errorf("expected server address %q, got %q", tc.want, server.Addr)
			}
		})
	}
}

func TestAppShutdown_ClosesStore(t *testing.T) {
	closed := false
	app := &App{
		Server:     &http.Server{},
		CloseStore: func() error { closed = true; return errors.New("boom") },
	}

	err := app.Shutdown(context.Background())

	if !closed {
		t.Error("expected store to be closed")
	}
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected store close error to be reported, got %v", err)
	}
}

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return connStr
}

// TestFullInitializationFlow wires a postgres store through to the router.
func TestFullInitializationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := &config.Config{
		ServerHost:     "localhost",
		ServerPort:     "0",
		DBDriver:       config.DBDriverPostgres,
		DBDSN:          startPostgres(t),
		DBMaxOpenConns: 4,
	}

	repo, closeStore, err := initializeStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer func() { _ = closeStore() }()

	if _, ok := repo.(*sqldb.Repository); !ok {
		t.Errorf("expected *sqldb.Repository, got %T", repo)
	}

	quotes := twelvedata.NewClient("test-api-key", time.Second)
	server, err := buildServer(cfg, application.NewStockService(repo), application.NewPortfolioService(repo, quotes, 2))
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/stocks", strings.NewReader(`{"symbol":"aapl","quantity":5}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("create failed: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/stocks/AAPL", nil)
	w = httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"quantity":5`) {
		t.Errorf("lookup failed: %d %s", w.Code, w.Body.String())
	}
}
