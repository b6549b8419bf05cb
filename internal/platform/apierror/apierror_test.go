package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-1")

	Handler(zerolog.Nop())(err, c)

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandler_APIError(t *testing.T) {
	rec, body := render(t, Conflict("user already exists with this email or phone"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeConflict, body.Code)
	assert.Equal(t, "rid-1", body.RequestID)
}

func TestHandler_WrappedAPIError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), SlotUnavailable())
	rec, body := render(t, wrapped)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeSlotUnavailable, body.Code)
}

func TestHandler_EchoHTTPError(t *testing.T) {
	rec, body := render(t, echo.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, body.Code)
}

func TestHandler_UnknownErrorIsGeneric(t *testing.T) {
	rec, body := render(t, errors.New("pq: relation users does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, body.Code)
	assert.NotContains(t, body.Message, "relation")
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Internal("server error placing order", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]Code{
		http.StatusBadRequest:            CodeValidation,
		http.StatusUnauthorized:          CodeUnauthorized,
		http.StatusForbidden:             CodeForbidden,
		http.StatusMethodNotAllowed:      CodeMethodNotAllowed,
		http.StatusRequestEntityTooLarge: CodePayloadTooLarge,
		http.StatusTooManyRequests:       CodeRateLimited,
		http.StatusGatewayTimeout:        CodeTimeout,
		http.StatusBadGateway:            CodeInternal,
	}
	for status, want := range tests {
		assert.Equal(t, want, codeForStatus(status), "status %d", status)
	}
}
