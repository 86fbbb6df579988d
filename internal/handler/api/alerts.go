package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"StockBoard/internal/domain/models"
	xhttp "StockBoard/pkg/http"
	xlogger "StockBoard/pkg/logger"
)

// AlertStore is the registry surface the API uses.
type AlertStore interface {
	Create(rule models.AlertRule) (models.AlertRule, error)
	Get(id int64) (models.AlertRule, error)
	List(userID int64, status models.AlertStatus) []models.AlertRule
	Update(id int64, patch models.AlertPatch) (models.AlertRule, error)
	Delete(id int64) error
}

// AlertChecker evaluates an explicit price map.
type AlertChecker interface {
	Check(ctx context.Context, prices map[string]float64) []models.AlertRule
}

type checkView struct {
	TriggeredAlerts []models.AlertRule `json:"triggered_alerts"`
	Count           int                `json:"count"`
}

// AlertsHandler serves alert CRUD and explicit checks.
type AlertsHandler struct {
	logger  *xlogger.Logger
	alerts  AlertStore
	checker AlertChecker
}

func NewAlertsHandler(logger *xlogger.Logger, alerts AlertStore, checker AlertChecker) *AlertsHandler {
	return &AlertsHandler{logger: logger, alerts: alerts, checker: checker}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/check", h.Check)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *AlertsHandler) List(c echo.Context) error {
	const endpoint = "alerts_list"
	defer observe(endpoint, time.Now())

	req := &models.ListAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	return xhttp.SuccessResponse(c, h.alerts.List(req.UserID, models.AlertStatus(req.Status)))
}

func (h *AlertsHandler) Create(c echo.Context) error {
	const endpoint = "alerts_create"
	defer observe(endpoint, time.Now())

	req := &models.CreateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}

	rule, err := h.alerts.Create(models.AlertRule{
		UserID:      req.UserID,
		StockSymbol: req.StockSymbol,
		AlertType:   models.AlertType(req.AlertType),
		TargetValue: decimal.NewFromFloat(req.TargetValue),
	})
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.CreatedResponse(c, rule)
}

func (h *AlertsHandler) Get(c echo.Context) error {
	const endpoint = "alerts_get"
	defer observe(endpoint, time.Now())

	req := &models.AlertIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	rule, err := h.alerts.Get(req.ID)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, rule)
}

func (h *AlertsHandler) Update(c echo.Context) error {
	const endpoint = "alerts_update"
	defer observe(endpoint, time.Now())

	req := &models.UpdateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}

	var patch models.AlertPatch
	if req.AlertType != nil {
		t := models.AlertType(*req.AlertType)
		patch.AlertType = &t
	}
	if req.TargetValue != nil {
		v := decimal.NewFromFloat(*req.TargetValue)
		patch.TargetValue = &v
	}
	if req.Status != nil {
		s := models.AlertStatus(*req.Status)
		patch.Status = &s
	}

	rule, err := h.alerts.Update(req.ID, patch)
	if err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.SuccessResponse(c, rule)
}

func (h *AlertsHandler) Delete(c echo.Context) error {
	const endpoint = "alerts_delete"
	defer observe(endpoint, time.Now())

	req := &models.AlertIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	if err := h.alerts.Delete(req.ID); err != nil {
		return fail(c, h.logger, endpoint, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *AlertsHandler) Check(c echo.Context) error {
	const endpoint = "alerts_check"
	defer observe(endpoint, time.Now())

	req := &models.CheckAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	triggered := h.checker.Check(c.Request().Context(), req.StockPrices)
	return xhttp.SuccessResponse(c, checkView{TriggeredAlerts: triggered, Count: len(triggered)})
}
