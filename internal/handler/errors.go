package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler renders service errors as {"error": kind, "message": text}.
// Internal failures are logged and reported without their cause.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := renderError(err)
	if status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("Request failed", zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		logger.FromEcho(c).Error("Failed to write error response", zap.Error(writeErr))
	}
}

func renderError(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, ErrorResponse{Error: httpKind(he.Code), Message: msg}
	}

	kind := apperr.KindOf(err)
	return apperr.HTTPStatus(kind), ErrorResponse{Error: string(kind), Message: apperr.PublicMessage(err)}
}

func httpKind(code int) string {
	switch code {
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusConflict:
		return string(apperr.KindConflict)
	}
	if code >= http.StatusInternalServerError {
		return string(apperr.KindInternal)
	}
	return string(apperr.KindInvalid)
}
