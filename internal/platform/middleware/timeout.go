package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/appointease/appointease/internal/platform/apierror"
)

type TimeoutConfig struct {
	Skipper echomw.Skipper
	Timeout time.Duration
}

// RequestTimeoutWithConfig attaches a deadline to the request context. The
// handler keeps running on the request goroutine; pgx calls see the expired
// context, fail, and any open transaction rolls back. When the deadline has
// passed and nothing was written yet, the client gets 504 TIMEOUT.
func RequestTimeoutWithConfig(cfg TimeoutConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Timeout <= 0 || cfg.Skipper(c) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if c.Response().Committed || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			return apierror.New(http.StatusGatewayTimeout, apierror.CodeTimeout,
				"request processing exceeded the allowed time limit")
		}
	}
}
