package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes data as-is with 200.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse writes data as-is with 201.
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// ValidationErrorResponse writes a 400 carrying the first validation message
// as the error text and every failure in details.
func ValidationErrorResponse(c echo.Context, errs []ValidationError) error {
	body := ErrorBody{Error: "invalid request", Code: "ERR_VALIDATION", Details: errs}
	if len(errs) > 0 && errs[0].Message != "" {
		body.Error = errs[0].Message
	}
	return c.JSON(http.StatusBadRequest, body)
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorBody{Error: "Something went wrong", Code: "ERR_INTERNAL"})
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.Status, ErrorBody{Error: appErr.Message, Code: appErr.Code})
	}
	return InternalServerErrorResponse(c)
}
