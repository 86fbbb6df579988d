package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"StockBoard/internal/domain/models"
	svcmetrics "StockBoard/internal/service/metrics"
	xhttp "StockBoard/pkg/http"
	xlogger "StockBoard/pkg/logger"
)

// toAppError maps the domain error taxonomy onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidState):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrRateLimited):
		return xhttp.ServiceUnavailableError("market data provider rate limit reached, try again shortly").WithError(err)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return xhttp.ServiceUnavailableError("market data provider unavailable").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

// fail logs err, counts it against endpoint and writes the mapped response.
func fail(c echo.Context, l *xlogger.Logger, endpoint string, err error) error {
	appErr := toAppError(err)
	svcmetrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= 500 {
		l.Error(endpoint+" failed", xlogger.Error(err))
	} else {
		l.Debug(endpoint+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// invalid counts and writes a validation failure.
func invalid(c echo.Context, endpoint string, errs []xhttp.ValidationError) error {
	svcmetrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
	return xhttp.ValidationErrorResponse(c, errs)
}

func observe(endpoint string, start time.Time) {
	svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
