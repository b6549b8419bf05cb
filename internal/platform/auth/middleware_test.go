package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/platform/apierror"
)

type failingRevoker struct{}

func (failingRevoker) Revoke(context.Context, string, time.Time) error { return nil }
func (failingRevoker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func runAuth(t *testing.T, header string, revoker Revoker) (*Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *Principal
	handler := func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}
	err := Authenticate(NewTokenManager(testSecret, time.Hour), revoker, zerolog.Nop())(handler)(c)
	return got, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierror.Error, got %T (%v)", err, err)
	}
	return apiErr.Status
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	_, err := runAuth(t, "", nil)
	if statusOf(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing header")
	}
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	for _, h := range []string{"Bearer", "Bearer   ", "Token abc", "Basic dXNlcjpwYXNz"} {
		t.Run(h, func(t *testing.T) {
			_, err := runAuth(t, h, nil)
			if statusOf(t, err) != http.StatusUnauthorized {
				t.Errorf("expected 401 for %q", h)
			}
		})
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	_, err := runAuth(t, "Bearer not.a.jwt", nil)
	if statusOf(t, err) != http.StatusForbidden {
		t.Errorf("expected 403 for garbage token")
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	issued, _ := NewTokenManager([]byte("some-other-secret-some-other-secret"), time.Hour).Issue(uuid.New(), UserTypePatient)
	_, err := runAuth(t, "Bearer "+issued.Token, nil)
	if statusOf(t, err) != http.StatusForbidden {
		t.Errorf("expected 403 for foreign signature")
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	uid := uuid.New()
	issued, _ := NewTokenManager(testSecret, time.Hour).Issue(uid, UserTypeDoctor)

	p, err := runAuth(t, "bearer "+issued.Token, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.UserID != uid || p.UserType != UserTypeDoctor || p.TokenID != issued.ID {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	revoker := NewMemoryRevoker(time.Hour)
	defer revoker.Close()
	issued, _ := NewTokenManager(testSecret, time.Hour).Issue(uuid.New(), UserTypePatient)
	_ = revoker.Revoke(context.Background(), issued.ID, issued.ExpiresAt)

	_, err := runAuth(t, "Bearer "+issued.Token, revoker)
	if statusOf(t, err) != http.StatusForbidden {
		t.Errorf("expected 403 for revoked token")
	}
}

func TestAuthenticate_RevokerFailureFailsClosed(t *testing.T) {
	issued, _ := NewTokenManager(testSecret, time.Hour).Issue(uuid.New(), UserTypePatient)
	_, err := runAuth(t, "Bearer "+issued.Token, failingRevoker{})
	if statusOf(t, err) != http.StatusInternalServerError {
		t.Errorf("expected 500 when deny-list is unreachable")
	}
}

func TestPrincipal_CanAccessUser(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	patient := &Principal{UserID: self, UserType: UserTypePatient}
	if !patient.CanAccessUser(self) {
		t.Error("patient should access own data")
	}
	if patient.CanAccessUser(other) {
		t.Error("patient must not access another user's data")
	}

	admin := &Principal{UserID: self, UserType: UserTypeAdmin}
	if !admin.CanAccessUser(other) {
		t.Error("admin should access any user's data")
	}
}
