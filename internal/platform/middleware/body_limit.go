package middleware

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"

	"github.com/appointease/appointease/internal/platform/apierror"
)

// defaultBodyLimit matches the BODY_LIMIT default of "1M"; gommon sizes
// are decimal.
const defaultBodyLimit = 1_000_000

// BodyLimit caps request bodies at limit, written the way echo writes sizes
// ("1M", "512KB", "2G" or plain bytes). Oversized bodies fail with 413
// PAYLOAD_TOO_LARGE, whether Content-Length announces them or not.
func BodyLimit(limit string) echo.MiddlewareFunc {
	max := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > max {
				return apierror.New(http.StatusRequestEntityTooLarge, apierror.CodePayloadTooLarge, "request body too large")
			}
			req.Body = &cappedBody{ReadCloser: req.Body, left: max}
			return next(c)
		}
	}
}

// parseLimit falls back to defaultBodyLimit for empty, malformed or non-positive sizes.
func parseLimit(s string) int64 {
	if s == "" {
		return defaultBodyLimit
	}
	n, err := bytes.Parse(s)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n
}

// cappedBody reports overflow as an echo.HTTPError; echo's binder passes
// those through unchanged, so the client sees 413 and not a bind failure.
type cappedBody struct {
	io.ReadCloser
	left int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, echo.ErrStatusRequestEntityTooLarge
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return 0, echo.ErrStatusRequestEntityTooLarge
	}
	return n, err
}
