package api

import (
	"github.com/labstack/echo/v4"

	xhttp "StockBoard/pkg/http"
)

// Router registers every API handler on one echo instance.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(stocks *StocksHandler, alerts *AlertsHandler, watchlists *WatchlistsHandler) *Router {
	return &Router{handlers: []xhttp.Handler{stocks, alerts, watchlists}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
