package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSecurityHeaders(t *testing.T, cfg SecurityConfig) http.Header {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/health", nil), rec)

	if err := SecurityHeaders(cfg)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	h := runSecurityHeaders(t, SecurityConfig{})

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if got := h.Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should be off by default, got %q", got)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	h := runSecurityHeaders(t, SecurityConfig{HSTSMaxAge: 31536000})
	if got := h.Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
