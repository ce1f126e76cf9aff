// Package response renders the uniform {ok, data, error} envelope.
package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	OK    bool    `json:"ok"`
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

// OK writes a successful envelope.
func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{OK: true, Data: data})
}

// Fail writes an error envelope.
func Fail(c echo.Context, status int, msg string) error {
	return FailWithData(c, status, msg, nil)
}

// FailWithData writes an error envelope that still carries data.
func FailWithData(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, Envelope{OK: false, Data: data, Error: &msg})
}

// HTTPErrorHandler renders any error returned by a handler or middleware as
// an envelope. Unclassified errors are logged and redacted.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg, data := resolve(err)
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			reqID, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = FailWithData(c, status, msg, data)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func resolve(err error) (int, string, any) {
	if appErr, ok := apperr.As(err); ok {
		if apperr.Redacted(appErr) {
			return appErr.HTTPStatus, "Error interno del servidor", nil
		}
		var data any = appErr.Data
		if len(appErr.Details) > 0 {
			data = map[string]any{"errors": appErr.Details}
		}
		return appErr.HTTPStatus, appErr.Message, data
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		if he.Code >= http.StatusInternalServerError {
			msg = "Error interno del servidor"
		}
		return he.Code, msg, nil
	}

	return http.StatusInternalServerError, "Error interno del servidor", nil
}
