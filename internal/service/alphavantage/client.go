package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockBoard/internal/domain/models"
	drepo "StockBoard/internal/domain/repository"
	svcmetrics "StockBoard/internal/service/metrics"
	"StockBoard/internal/service/ratelimit"
	xhttp "StockBoard/pkg/http"
	applogger "StockBoard/pkg/logger"
	"StockBoard/pkg/util"
)

const (
	fnGlobalQuote  = "GLOBAL_QUOTE"
	fnDailySeries  = "TIME_SERIES_DAILY"
	fnSymbolSearch = "SYMBOL_SEARCH"

	limiterKey = "alphavantage"
)

// Option configures Client.
type Option func(*Client)

// Client talks to an Alpha Vantage compatible REST API. It implements
// QuoteSource, HistorySource and SymbolSearcher.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string

	limiter      *ratelimit.Limiter
	capacity     float64
	refillPerSec float64

	retries int
	backoff time.Duration
	log     *applogger.Logger
}

var (
	_ drepo.QuoteSource    = (*Client)(nil)
	_ drepo.HistorySource  = (*Client)(nil)
	_ drepo.SymbolSearcher = (*Client)(nil)
)

// New creates a provider client.
func New(httpClient *xhttp.Client, baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
		backoff: 250 * time.Millisecond,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRateLimit throttles outgoing calls with a token bucket. Calls beyond
// the budget fail immediately with models.ErrRateLimited.
func WithRateLimit(l *ratelimit.Limiter, capacity, refillPerSec float64) Option {
	return func(c *Client) {
		c.limiter = l
		c.capacity = capacity
		c.refillPerSec = refillPerSec
	}
}

// WithRetries sets how many extra attempts a transport failure gets.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithLogger sets the client logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// envelope holds the fields every provider response may carry.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (e envelope) err(symbol string) error {
	switch {
	case e.Note != "" || e.Information != "":
		return models.ErrRateLimited
	case e.ErrorMessage != "":
		return fmt.Errorf("symbol %q: %w", symbol, models.ErrNotFound)
	}
	return nil
}

type globalQuoteResponse struct {
	envelope
	Quote map[string]string `json:"Global Quote"`
}

type dailySeriesResponse struct {
	envelope
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

type searchResponse struct {
	envelope
	BestMatches []map[string]string `json:"bestMatches"`
}

// FetchQuote returns the latest quote for symbol. FetchedAt is left for the caller to stamp.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	var resp globalQuoteResponse
	if err := c.call(ctx, fnGlobalQuote, map[string]string{"symbol": symbol}, &resp); err != nil {
		return models.Quote{}, err
	}
	if err := resp.err(symbol); err != nil {
		c.observe(fnGlobalQuote, err)
		return models.Quote{}, err
	}
	if len(resp.Quote) == 0 {
		err := fmt.Errorf("quote %q: %w", symbol, models.ErrNotFound)
		c.observe(fnGlobalQuote, err)
		return models.Quote{}, err
	}
	q, err := parseQuote(symbol, resp.Quote)
	c.observe(fnGlobalQuote, err)
	return q, err
}

// FetchDailyBars returns daily bars ordered by ascending date.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, size drepo.OutputSize) ([]models.Bar, error) {
	symbol = models.NormalizeSymbol(symbol)
	if size == "" {
		size = drepo.OutputCompact
	}
	var resp dailySeriesResponse
	params := map[string]string{"symbol": symbol, "outputsize": string(size)}
	if err := c.call(ctx, fnDailySeries, params, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(symbol); err != nil {
		c.observe(fnDailySeries, err)
		return nil, err
	}
	if resp.Series == nil {
		err := fmt.Errorf("daily series %q: %w", symbol, models.ErrNotFound)
		c.observe(fnDailySeries, err)
		return nil, err
	}

	bars := make([]models.Bar, 0, len(resp.Series))
	for day, v := range resp.Series {
		d, err := util.ParseDay(day)
		if err != nil {
			c.log.Warn("alphavantage: skipping bar with bad date",
				applogger.String("symbol", symbol), applogger.String("date", day))
			continue
		}
		bars = append(bars, models.Bar{
			Symbol: symbol,
			Date:   d,
			Open:   parseFloat(v["1. open"]),
			High:   parseFloat(v["2. high"]),
			Low:    parseFloat(v["3. low"]),
			Close:  parseFloat(v["4. close"]),
			Volume: parseInt(v["5. volume"]),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	c.observe(fnDailySeries, nil)
	return bars, nil
}

// Search looks up symbols by keyword. No matches is an empty result, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	var resp searchResponse
	if err := c.call(ctx, fnSymbolSearch, map[string]string{"keywords": query}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(query); err != nil {
		c.observe(fnSymbolSearch, err)
		return nil, err
	}
	matches := make([]models.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		matches = append(matches, models.SymbolMatch{
			Symbol:      m["1. symbol"],
			Name:        m["2. name"],
			Type:        m["3. type"],
			Region:      m["4. region"],
			MarketOpen:  m["5. marketOpen"],
			MarketClose: m["6. marketClose"],
			Timezone:    m["7. timezone"],
			Currency:    m["8. currency"],
			MatchScore:  parseFloat(m["9. matchScore"]),
		})
	}
	c.observe(fnSymbolSearch, nil)
	return matches, nil
}

// call performs one provider request with a budget check. Transport
// failures, 408 and 5xx are retried; anything else ends the call at once.
func (c *Client) call(ctx context.Context, function string, params map[string]string, dest interface{}) error {
	if c.limiter != nil && !c.limiter.Allow(limiterKey, c.capacity, c.refillPerSec) {
		c.observe(function, models.ErrRateLimited)
		return models.ErrRateLimited
	}

	query := url.Values{
		"function": {function},
		"apikey":   {c.apiKey},
	}
	for k, v := range params {
		query.Set(k, v)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = c.http.GetJSON(ctx, c.baseURL, query, dest)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return c.unavailable(function, ctxErr)
		}

		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%s: %w", strings.ToLower(function), models.ErrRateLimited)
			c.observe(function, err)
			return err
		}
		if !retryable(err) || attempt >= c.retries {
			break
		}

		c.log.Warn("alphavantage: request failed",
			applogger.String("function", function),
			applogger.Int("attempt", attempt+1),
			applogger.Error(err),
		)
		select {
		case <-ctx.Done():
			return c.unavailable(function, ctx.Err())
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return c.unavailable(function, err)
}

// retryable reports whether err is a transport failure or a temporary status.
func retryable(err error) bool {
	if errors.Is(err, xhttp.ErrDecode) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (c *Client) unavailable(function string, cause error) error {
	err := fmt.Errorf("%s: %w: %w", strings.ToLower(function), cause, models.ErrUpstreamUnavailable)
	c.observe(function, err)
	return err
}

func (c *Client) observe(function string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrRateLimited):
		result = "rate_limited"
	case errors.Is(err, models.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	svcmetrics.UpstreamCalls.WithLabelValues(function, result).Inc()
}

func parseQuote(symbol string, raw map[string]string) (models.Quote, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw["05. price"]), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return models.Quote{}, fmt.Errorf("quote %q price %q: %w", symbol, raw["05. price"], models.ErrUpstreamUnavailable)
	}
	if s := raw["01. symbol"]; s != "" {
		symbol = models.NormalizeSymbol(s)
	}
	return models.Quote{
		Symbol:           symbol,
		Price:            price,
		Open:             parseFloat(raw["02. open"]),
		High:             parseFloat(raw["03. high"]),
		Low:              parseFloat(raw["04. low"]),
		Volume:           parseInt(raw["06. volume"]),
		LatestTradingDay: raw["07. latest trading day"],
		PreviousClose:    parseFloat(raw["08. previous close"]),
		Change:           parseFloat(raw["09. change"]),
		ChangePercent:    parseFloat(strings.TrimSuffix(raw["10. change percent"], "%")),
	}, nil
}

// parseFloat reads an optional numeric field; unparsable or non-finite values read as 0.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
