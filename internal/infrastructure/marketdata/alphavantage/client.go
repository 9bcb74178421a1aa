package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jmanzanog/portfolio-tracker/internal/infrastructure/marketdata"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"
	defaultTimeout = 10 * time.Second
	queryPath      = "/query"

	// The historical endpoint is queried with Alpha Vantage's public demo
	// key, which only serves IBM.
	historicalSymbol = "IBM"
	historicalAPIKey = "demo"
)

// Client implements marketdata.QuoteProvider and marketdata.HistoricalProvider
// against the Alpha Vantage query API.
type Client struct {
	apiKey string
	rest   *resty.Client
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rest := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{apiKey: apiKey, rest: rest}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.rest.SetBaseURL(baseURL)
}

// notice carries the fields Alpha Vantage uses to report problems with a
// 200 status.
type notice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (n notice) err() error {
	switch {
	case n.Note != "":
		return fmt.Errorf("rate limited: %s", n.Note)
	case n.Information != "":
		return fmt.Errorf("rate limited: %s", n.Information)
	case n.ErrorMessage != "":
		return fmt.Errorf("provider error: %s", n.ErrorMessage)
	}
	return nil
}

type globalQuoteResponse struct {
	notice
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Price            string `json:"05. price"`
		LatestTradingDay string `json:"07. latest trading day"`
	} `json:"Global Quote"`
}

type historicalResponse struct {
	notice
	Data json.RawMessage `json:"data"`
}

// GetQuote retrieves the latest GLOBAL_QUOTE price for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*marketdata.QuoteResult, error) {
	var quoteResp globalQuoteResponse
	if err := c.query(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
		"apikey":   c.apiKey,
	}, &quoteResp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", marketdata.ErrQuoteUnavailable, symbol, err)
	}

	if quoteResp.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("%w: no quote data found for symbol: %s", marketdata.ErrQuoteUnavailable, symbol)
	}

	price, err := decimal.NewFromString(quoteResp.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse price %q: %w", marketdata.ErrQuoteUnavailable, quoteResp.GlobalQuote.Price, err)
	}

	resultSymbol := quoteResp.GlobalQuote.Symbol
	if resultSymbol == "" {
		resultSymbol = symbol
	}

	return &marketdata.QuoteResult{
		Symbol:   resultSymbol,
		Price:    price,
		Currency: "", // GLOBAL_QUOTE does not report a currency
		Time:     quoteResp.GlobalQuote.LatestTradingDay,
	}, nil
}

// HistoricalPrices returns the "data" member of the HISTORICAL_OPTIONS
// response untouched.
func (c *Client) HistoricalPrices(ctx context.Context) (json.RawMessage, error) {
	var histResp historicalResponse
	if err := c.query(ctx, map[string]string{
		"function": "HISTORICAL_OPTIONS",
		"symbol":   historicalSymbol,
		"apikey":   historicalAPIKey,
	}, &histResp); err != nil {
		return nil, fmt.Errorf("%w: historical options: %w", marketdata.ErrQuoteUnavailable, err)
	}

	if len(histResp.Data) == 0 || string(histResp.Data) == "null" {
		return nil, fmt.Errorf("%w: historical options response has no data", marketdata.ErrQuoteUnavailable)
	}

	return histResp.Data, nil
}

type noticer interface {
	err() error
}

func (c *Client) query(ctx context.Context, params map[string]string, out noticer) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(queryPath)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		slog.WarnContext(ctx, "failed to decode alpha vantage response", "function", params["function"], "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return out.err()
}
