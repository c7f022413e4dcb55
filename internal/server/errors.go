package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/dashboard"
)

// ErrorJSON returns an HTTP error handler that renders every error as ErrorResponse.
func ErrorJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps analysis and filter errors to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, analytics.ErrInvalidInput),
		errors.Is(err, analytics.ErrUndefinedScore),
		errors.Is(err, analytics.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// analysisDetails describes an analytics failure for the response body.
func analysisDetails(err error) map[string]any {
	details := map[string]any{"kind": analytics.ErrorKind(err)}
	var ae *analytics.AnalysisError
	if errors.As(err, &ae) {
		details["pass"] = ae.Pass
	}
	return details
}
