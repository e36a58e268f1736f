// Package market talks to the Binance spot REST API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	tickerPath = "/api/v3/ticker/24hr"
	klinesPath = "/api/v3/klines"

	defaultKlineLimit = 60
)

// Options parameterise the Binance client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UserAgent     string
	KlineInterval string
}

// Client fetches tickers and candlesticks from Binance.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a market client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}

	if opts.KlineInterval == "" {
		opts.KlineInterval = "15m"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "market_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Ticker is the decoded 24h rolling-window statistics for one symbol.
type Ticker struct {
	Symbol        string
	LastPrice     decimal.Decimal
	ChangePercent decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Volume        decimal.Decimal
}

// Kline is one closed or in-progress candlestick.
type Kline struct {
	OpenTime time.Time
	Close    decimal.Decimal
}

// Ticker24h retrieves the 24h stats for a symbol such as "BTCUSDT".
func (c *Client) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	query := url.Values{"symbol": {symbol}}
	payload, err := c.get(ctx, tickerPath, query)
	if err != nil {
		return Ticker{}, err
	}

	var res tickerResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}

	ticker := Ticker{Symbol: res.Symbol}
	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"lastPrice", res.LastPrice, &ticker.LastPrice},
		{"priceChangePercent", res.PriceChangePercent, &ticker.ChangePercent},
		{"highPrice", res.HighPrice, &ticker.High},
		{"lowPrice", res.LowPrice, &ticker.Low},
		{"volume", res.Volume, &ticker.Volume},
	} {
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return Ticker{}, fmt.Errorf("parse %s %q: %w", field.name, field.raw, err)
		}
		*field.dst = v
	}

	return ticker, nil
}

// Klines retrieves up to limit candlesticks for a symbol, oldest first.
// Rows the API returns in an unexpected shape are skipped.
func (c *Client) Klines(ctx context.Context, symbol string, limit int) ([]Kline, error) {
	if limit <= 0 {
		limit = defaultKlineLimit
	}

	query := url.Values{
		"symbol":   {symbol},
		"interval": {c.opts.KlineInterval},
		"limit":    {fmt.Sprintf("%d", limit)},
	}
	payload, err := c.get(ctx, klinesPath, query)
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	klines := make([]Kline, 0, len(rows))
	for _, row := range rows {
		// Binance kline rows are positional: [0] open time ms, [4] close price.
		if len(row) < 5 {
			c.logger.Debug().Str("symbol", symbol).Msg("skipping short kline row")
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			c.logger.Debug().Str("symbol", symbol).Err(err).Msg("skipping kline with bad open time")
			continue
		}
		var closeRaw string
		if err := json.Unmarshal(row[4], &closeRaw); err != nil {
			c.logger.Debug().Str("symbol", symbol).Err(err).Msg("skipping kline with bad close price")
			continue
		}
		closePrice, err := decimal.NewFromString(closeRaw)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Str("close", closeRaw).Msg("skipping unparsable close price")
			continue
		}
		klines = append(klines, Kline{OpenTime: time.UnixMilli(openMs), Close: closePrice})
	}

	return klines, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "cryptowatcher/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	return payload, nil
}

type tickerResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Errorf("binance api error (%d): %s", status, apiErr.Msg)
	}
	if len(payload) > 0 {
		return fmt.Errorf("binance api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("binance api error (%d)", status)
}
