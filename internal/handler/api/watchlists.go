package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"StockBoard/internal/domain/models"
	xhttp "StockBoard/pkg/http"
	xlogger "StockBoard/pkg/logger"
)

// WatchlistStore is the watchlist surface the API uses.
type WatchlistStore interface {
	List(userID int64) []models.Watchlist
	Create(userID int64, name string) models.Watchlist
	Get(id int64) (models.Watchlist, error)
	Rename(id int64, name string) (models.Watchlist, error)
	Delete(id int64) error
	Items(id int64) ([]models.WatchlistItem, error)
	AddItem(id int64, symbol string) (models.WatchlistItem, bool, error)
	RemoveItem(id, itemID int64) error
}

type WatchlistsHandler struct {
	logger *xlogger.Logger
	lists  WatchlistStore
}

func NewWatchlistsHandler(logger *xlogger.Logger, lists WatchlistStore) *WatchlistsHandler {
	return &WatchlistsHandler{logger: logger, lists: lists}
}

func (h *WatchlistsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/watchlists")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Rename)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/items", h.Items)
	g.POST("/:id/items", h.AddItem)
	g.DELETE("/:id/items/:item_id", h.RemoveItem)
}

func (h *WatchlistsHandler) List(c echo.Context) error {
	const endpoint = "watchlists_list"
	defer observe(endpoint, time.Now())

	req := &models.ListWatchlistsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	return xhttp.SuccessResponse(c, h.lists.List(req.UserID))
}

func (h *WatchlistsHandler) Create(c echo.Context) error {
	const endpoint = "watchlists_create"
	defer observe(endpoint, time.Now())

	req := &models.CreateWatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	return xhttp.CreatedResponse(c, h.lists.Create(req.UserID, req.Name))
}

func (h *WatchlistsHandler) Get(c echo.Context) error {
	const endpoint = "watchlists_get"
	defer observe(endpoint, time.Now())

	req := &models.WatchlistIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	w, err := h.lists.Get(req.ID)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *WatchlistsHandler) Rename(c echo.Context) error {
	const endpoint = "watchlists_update"
	defer observe(endpoint, time.Now())

	req := &models.UpdateWatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	w, err := h.lists.Rename(req.ID, req.Name)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *WatchlistsHandler) Delete(c echo.Context) error {
	const endpoint = "watchlists_delete"
	defer observe(endpoint, time.Now())

	req := &models.WatchlistIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	if err := h.lists.Delete(req.ID); err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *WatchlistsHandler) Items(c echo.Context) error {
	const endpoint = "watchlists_items"
	defer observe(endpoint, time.Now())

	req := &models.WatchlistIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	items, err := h.lists.Items(req.ID)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *WatchlistsHandler) AddItem(c echo.Context) error {
	const endpoint = "watchlists_add_item"
	defer observe(endpoint, time.Now())

	req := &models.AddWatchlistItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	item, created, err := h.lists.AddItem(req.ID, req.StockSymbol)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	if created {
		return xhttp.CreatedResponse(c, item)
	}
	return xhttp.SuccessResponse(c, item)
}

func (h *WatchlistsHandler) RemoveItem(c echo.Context) error {
	const endpoint = "watchlists_remove_item"
	defer observe(endpoint, time.Now())

	req := &models.RemoveWatchlistItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	if err := h.lists.RemoveItem(req.ID, req.ItemID); err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.NoContentResponse(c)
}
