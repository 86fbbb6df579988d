package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"StockBoard/internal/domain/models"
	domrepo "StockBoard/internal/domain/repository"
	"StockBoard/internal/usecase"
	xhttp "StockBoard/pkg/http"
	xlogger "StockBoard/pkg/logger"
	"StockBoard/pkg/util"
)

// QuoteReader serves cached quotes.
type QuoteReader interface {
	Get(ctx context.Context, symbol string) (models.QuoteResult, error)
}

// SeriesReader serves historical bars.
type SeriesReader interface {
	Bars(ctx context.Context, symbol string, interval domrepo.Interval, limit int) (usecase.Series, error)
}

// Searcher serves symbol search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

// ViewRecorder is told about every quote a client reads.
type ViewRecorder interface {
	Touch(symbol string)
}

type quoteView struct {
	models.Quote
	Stale      bool    `json:"stale"`
	AgeSeconds float64 `json:"age_seconds"`
}

type barView struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Bars   int     `json:"bars,omitempty"`
}

type historicalView struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Stale    bool      `json:"stale"`
	Data     []barView `json:"data"`
}

type searchView struct {
	Query   string               `json:"query"`
	Matches []models.SymbolMatch `json:"matches"`
}

// StocksHandler serves quotes, historical series and symbol search.
type StocksHandler struct {
	logger *xlogger.Logger
	quotes QuoteReader
	series SeriesReader
	search Searcher
	views  ViewRecorder
	now    func() time.Time
}

func NewStocksHandler(logger *xlogger.Logger, quotes QuoteReader, series SeriesReader, search Searcher, views ViewRecorder) *StocksHandler {
	return &StocksHandler{logger: logger, quotes: quotes, series: series, search: search, views: views, now: time.Now}
}

func (h *StocksHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/stocks")
	g.GET("/quote/:symbol", h.Quote)
	g.GET("/historical/:symbol", h.Historical)
	g.GET("/search/:query", h.Search)
}

func (h *StocksHandler) Quote(c echo.Context) error {
	const endpoint = "stocks_quote"
	defer observe(endpoint, time.Now())

	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}

	res, err := h.quotes.Get(c.Request().Context(), req.Symbol)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	if h.views != nil {
		h.views.Touch(res.Quote.Symbol)
	}
	if res.Stale {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
	}
	return xhttp.SuccessResponse(c, quoteView{
		Quote:      res.Quote,
		Stale:      res.Stale,
		AgeSeconds: res.Quote.Age(h.now()).Seconds(),
	})
}

func (h *StocksHandler) Historical(c echo.Context) error {
	const endpoint = "stocks_historical"
	defer observe(endpoint, time.Now())

	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	iv := domrepo.NormalizeInterval(req.Interval)

	s, err := h.series.Bars(c.Request().Context(), req.Symbol, iv, req.Limit)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}

	data := make([]barView, 0, len(s.Bars))
	for _, b := range s.Bars {
		v := barView{
			Date:   b.Date.Format(util.DayLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		if iv != domrepo.IntervalDaily {
			v.Bars = b.Bars
		}
		data = append(data, v)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, historicalView{
		Symbol:   s.Symbol,
		Interval: string(iv),
		Stale:    s.Stale,
		Data:     data,
	})
}

func (h *StocksHandler) Search(c echo.Context) error {
	const endpoint = "stocks_search"
	defer observe(endpoint, time.Now())

	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}

	matches, err := h.search.Search(c.Request().Context(), req.Query)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, searchView{Query: req.Query, Matches: matches})
}
