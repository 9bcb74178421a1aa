package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	go_ora "github.com/sijms/go-ora/v2"
)

const (
	MarketDataProviderAlphaVantage = "alphavantage"
	MarketDataProviderFinnhub      = "finnhub"
	MarketDataProviderTwelveData   = "twelvedata"

	DBDriverPostgres = "postgres"
	DBDriverMySQL    = "mysql"
	DBDriverOracle   = "oracle"
	DBDriverMemory   = "memory"
)

type Config struct {
	ServerPort string
	ServerHost string
	LogLevel   string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int

	MarketDataProvider   string
	AlphaVantageAPIKey   string
	FinnhubAPIKey        string
	TwelveDataAPIKey     string
	QuoteTimeout         time.Duration
	PortfolioConcurrency int

	// CORSAllowedOrigins is empty when CORS handling is disabled.
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:         getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:         getEnvOrDefault("SERVER_HOST", "localhost"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		DBDriver:           strings.ToLower(getEnvOrDefault("DB_DRIVER", DBDriverPostgres)),
		MarketDataProvider: strings.ToLower(getEnvOrDefault("MARKET_DATA_PROVIDER", MarketDataProviderAlphaVantage)),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		FinnhubAPIKey:      os.Getenv("FINNHUB_API_KEY"),
		TwelveDataAPIKey:   os.Getenv("TWELVE_DATA_API_KEY"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.loadDatabase(); err != nil {
		return nil, err
	}

	if err := cfg.validateProvider(); err != nil {
		return nil, err
	}

	var err error
	cfg.QuoteTimeout, err = time.ParseDuration(getEnvOrDefault("QUOTE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}
	if cfg.QuoteTimeout <= 0 {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: must be positive")
	}

	cfg.PortfolioConcurrency, err = positiveInt("PORTFOLIO_CONCURRENCY", "4")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

func (c *Config) loadDatabase() error {
	var err error
	c.DBMaxOpenConns, err = positiveInt("DB_MAX_OPEN_CONNS", "10")
	if err != nil {
		return err
	}

	switch c.DBDriver {
	case DBDriverMemory:
		return nil
	case DBDriverPostgres, DBDriverMySQL, DBDriverOracle:
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s (supported: postgres, mysql, oracle, memory)", c.DBDriver)
	}

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.DBDSN = dsn
		return nil
	}

	if os.Getenv("DB_HOST") == "" {
		return fmt.Errorf("DB_DSN or DB_HOST environment variable is required for %s driver", c.DBDriver)
	}

	c.DBDSN, err = buildDSN(c.DBDriver)
	return err
}

func (c *Config) validateProvider() error {
	var key, name string
	switch c.MarketDataProvider {
	case MarketDataProviderAlphaVantage:
		key, name = c.AlphaVantageAPIKey, "ALPHA_VANTAGE_API_KEY"
	case MarketDataProviderFinnhub:
		key, name = c.FinnhubAPIKey, "FINNHUB_API_KEY"
	case MarketDataProviderTwelveData:
		key, name = c.TwelveDataAPIKey, "TWELVE_DATA_API_KEY"
	default:
		return fmt.Errorf("unsupported MARKET_DATA_PROVIDER: %s (supported: alphavantage, finnhub, twelvedata)", c.MarketDataProvider)
	}

	if key == "" {
		return fmt.Errorf("%s environment variable is required for %s provider", name, c.MarketDataProvider)
	}
	return nil
}

// buildDSN assembles a driver specific DSN from the DB_HOST family of
// variables.
func buildDSN(driver string) (string, error) {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	name := os.Getenv("DB_NAME")

	switch driver {
	case DBDriverPostgres:
		port := getEnvOrDefault("DB_PORT", "5432")
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     net.JoinHostPort(host, port),
			Path:     "/" + name,
			RawQuery: "sslmode=" + getEnvOrDefault("DB_SSLMODE", "disable"),
		}
		return u.String(), nil

	case DBDriverMySQL:
		port := getEnvOrDefault("DB_PORT", "3306")
		mc := mysql.NewConfig()
		mc.User = user
		mc.Passwd = password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(host, port)
		mc.DBName = name
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case DBDriverOracle:
		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "1521"))
		if err != nil {
			return "", fmt.Errorf("invalid DB_PORT: %w", err)
		}
		return go_ora.BuildUrl(host, port, name, user, password, nil), nil
	}

	return "", fmt.Errorf("unsupported DB_DRIVER: %s", driver)
}

func positiveInt(key, defaultValue string) (int, error) {
	n, err := strconv.Atoi(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
