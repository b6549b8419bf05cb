package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/platform/apierror"
)

const panicStackSize = 8 << 10

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response and
// logs the panic value with the goroutine stack, tagged by request id.
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
				stack := make([]byte, panicStackSize)
				stack = stack[:runtime.Stack(stack, false)]

				logger.Error().
					Str("request_id", c.Response().Header().Get(RequestIDHeader)).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Interface("panic", r).
					Bytes("stack", stack).
					Msg("panic recovered")

				err = apierror.Internal("internal server error", fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
