// Package coingecko provides a rate-limited client for the CoinGecko market-data API.
package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// PageSize is the number of coins requested per markets page
const PageSize = 250

const (
	defaultBaseURL      = "https://api.coingecko.com/api/v3"
	defaultTimeout      = 15 * time.Second
	defaultMaxRetries   = 2
	defaultRetryBackoff = 2 * time.Second
	defaultBurst        = 4
	maxBodyBytes        = 8 << 20
	apiKeyHeader        = "x-cg-demo-api-key"
)

var (
	// ErrRateLimited is returned when the API answers 429, either as the
	// HTTP status or inside the response body.
	ErrRateLimited = errors.New("coingecko: rate limited")
	// ErrUnexpectedStatus is returned for any other non-2xx answer
	ErrUnexpectedStatus = errors.New("coingecko: unexpected status")
)

// Config holds client settings
type Config struct {
	BaseURL           string
	APIKey            string // Optional demo key
	QuoteCurrency     string
	RequestsPerMinute int
	Burst             int
	Timeout           time.Duration
	MaxRetries        int           // Retries after transport errors and 5xx
	RetryBackoff      time.Duration // Multiplied by the attempt number
}

// Client for api.coingecko.com
type Client struct {
	baseURL      string
	apiKey       string
	quote        string
	client       *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	log          zerolog.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		quote:        strings.ToLower(cfg.QuoteCurrency),
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(limit, cfg.Burst),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		log:          log.With().Str("client", "coingecko").Logger(),
	}
}

// FetchPage returns one page of coins ordered by descending market cap
func (c *Client) FetchPage(ctx context.Context, page int) ([]domain.MarketCoin, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page %d", page)
	}

	params := url.Values{}
	params.Set("vs_currency", c.quote)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(PageSize))
	params.Set("page", strconv.Itoa(page))

	coins, err := c.fetchMarkets(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets page %d: %w", page, err)
	}

	c.log.Debug().Int("page", page).Int("coins", len(coins)).Msg("Fetched markets page")
	return coins, nil
}

// FetchBySymbol returns zero or one coin for a ticker.
// When several coins share the ticker the one with the largest market cap wins.
func (c *Client) FetchBySymbol(ctx context.Context, symbol string) ([]domain.MarketCoin, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return []domain.MarketCoin{}, nil
	}

	params := url.Values{}
	params.Set("vs_currency", c.quote)
	params.Set("order", "market_cap_desc")
	params.Set("symbols", symbol)

	coins, err := c.fetchMarkets(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbol %s: %w", symbol, err)
	}
	return firstOnly(coins), nil
}

// FetchByID returns zero or one coin for an index id (e.g. "bitcoin")
func (c *Client) FetchByID(ctx context.Context, id string) ([]domain.MarketCoin, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return []domain.MarketCoin{}, nil
	}

	params := url.Values{}
	params.Set("vs_currency", c.quote)
	params.Set("ids", id)

	coins, err := c.fetchMarkets(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coin %s: %w", id, err)
	}
	return firstOnly(coins), nil
}

// Search performs a free-text lookup against coin names and symbols.
// A malformed body yields an empty list.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchCoin, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchCoin{}, nil
	}

	params := url.Values{}
	params.Set("query", query)

	body, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("Malformed search response, treating as no results")
		return []domain.SearchCoin{}, nil
	}

	result := make([]domain.SearchCoin, 0, len(resp.Coins))
	for _, coin := range resp.Coins {
		result = append(result, coin.toDomain())
	}
	return result, nil
}

func (c *Client) fetchMarkets(ctx context.Context, params url.Values) ([]domain.MarketCoin, error) {
	body, err := c.get(ctx, "/coins/markets", params)
	if err != nil {
		return nil, err
	}

	var raw []marketCoin
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse markets response: %w", err)
	}

	coins := make([]domain.MarketCoin, 0, len(raw))
	for _, m := range raw {
		coins = append(coins, m.toDomain())
	}
	return coins, nil
}

// get issues a throttled GET and returns the body of a successful answer.
// Transport errors and 5xx are retried; 429 is returned immediately so the
// caller can fall back to whatever it already has.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryBackoff * time.Duration(attempt)
			c.log.Debug().Err(lastErr).Int("attempt", attempt).Dur("wait", wait).Str("path", path).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, retry, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.log.Warn().Str("url", endpoint).Msg("Rate limited by API")
		return nil, false, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := checkStatusEnvelope(body); err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.log.Warn().Str("url", endpoint).Msg("Rate limited by API (body status)")
		}
		return nil, false, err
	}

	return body, false, nil
}

// checkStatusEnvelope detects errors the API reports inside a 2xx body
func checkStatusEnvelope(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var env statusEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Status == nil {
		return nil
	}

	switch env.Status.ErrorCode {
	case 0:
		return nil
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, env.Status.ErrorCode, env.Status.ErrorMessage)
	}
}

func firstOnly(coins []domain.MarketCoin) []domain.MarketCoin {
	if len(coins) > 1 {
		return coins[:1]
	}
	return coins
}
