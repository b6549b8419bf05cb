package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/platform/apierror"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID    uuid.UUID
	UserType  string
	TokenID   string
	ExpiresAt time.Time
}

func (p *Principal) IsAdmin() bool { return p.UserType == UserTypeAdmin }

// CanAccessUser reports whether the caller may read data owned by userID.
func (p *Principal) CanAccessUser(userID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == userID
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Authenticate verifies the bearer token. A missing token yields 401
// UNAUTHORIZED; a token that fails verification, has expired or was revoked
// yields 403 FORBIDDEN.
func Authenticate(tokens *TokenManager, revoker Revoker, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if tokenStr == "" {
				return apierror.Unauthorized("access token required")
			}

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				return apierror.Forbidden("invalid or expired token")
			}

			if revoker != nil {
				revoked, err := revoker.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					// Fail closed: an unreachable deny-list must not let a
					// logged-out token through.
					logger.Error().Err(err).Msg("token revocation check failed")
					return apierror.Internal("could not verify token", err)
				}
				if revoked {
					return apierror.Forbidden("invalid or expired token")
				}
			}

			p := &Principal{
				UserID:   uuid.MustParse(claims.UserID),
				UserType: claims.UserType,
				TokenID:  claims.ID,
			}
			if claims.ExpiresAt != nil {
				p.ExpiresAt = claims.ExpiresAt.Time
			}

			c.Set("user_id", claims.UserID)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
