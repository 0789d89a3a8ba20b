package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps an error kind to a response status code.
func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.KindInvalidInput, errs.KindInvalidState:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error as JSON. Storage and unclassified failures
// are logged and masked; their details stay out of responses.
func respondError(c echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error().Err(err).
			Str("path", c.Path()).
			Msg("request failed")
		return c.JSON(status, errorResponse{Error: "internal server error"})
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return c.JSON(status, errorResponse{Error: e.Message})
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
