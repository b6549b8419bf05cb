package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/platform/apierror"
)

// Logger writes one structured line per request. Request bodies and
// credentials are never logged.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			rid, _ := c.Get("request_id").(string)
			status := c.Response().Status
			evt := logger.Info()
			if err != nil {
				apiErr := apierror.From(err)
				status = apiErr.Status
				evt = logger.Warn().Str("code", string(apiErr.Code))
				if status >= 500 {
					evt = logger.Error().Err(err).Str("code", string(apiErr.Code))
				}
			}

			if uid, ok := c.Get("user_id").(string); ok {
				evt = evt.Str("user_id", uid)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
