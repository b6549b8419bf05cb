package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// SecurityConfig controls the headers added by SecurityHeaders.
type SecurityConfig struct {
	// HSTSMaxAge is sent as Strict-Transport-Security when positive. It is
	// left at zero outside production so local plain-HTTP clients are not
	// pinned to HTTPS.
	HSTSMaxAge int
}

// SecurityHeaders marks every response as non-cacheable, non-embeddable
// JSON. Responses carry appointment and report data for a single user.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")
			h.Set(echo.HeaderCacheControl, "no-store")
			if hsts != "" {
				h.Set(echo.HeaderStrictTransportSecurity, hsts)
			}
			return next(c)
		}
	}
}
