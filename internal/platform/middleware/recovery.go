package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
)

// Recovery turns a handler panic into an internal error so the client gets
// the usual 500 envelope. The log line carries the route and the usuario
// that triggered it.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				rid, _ := c.Get("request_id").(string)
				req := c.Request()
				logger.Error().
					Str("request_id", rid).
					Str("method", req.Method).
					Str("route", c.Path()).
					Str("usuario_id", auth.UserIDFromContext(req.Context())).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				err = apperr.Internal(fmt.Errorf("panic en %s %s: %v", req.Method, c.Path(), r))
			}()
			return next(c)
		}
	}
}
