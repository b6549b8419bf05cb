package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	UserTypePatient = "patient"
	UserTypeDoctor  = "doctor"
	UserTypeAdmin   = "admin"
)

// DefaultTokenTTL is the session lifetime.
const DefaultTokenTTL = 24 * time.Hour

const tokenIssuer = "appointease"

// Claims is the session token payload.
type Claims struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token plus the metadata callers report to clients.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 session tokens with a shared secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token binding userID and userType.
func (m *TokenManager) Issue(userID uuid.UUID, userType string) (*IssuedToken, error) {
	now := m.now()
	jti := uuid.NewString()
	exp := now.Add(m.ttl)
	claims := Claims{
		UserID:   userID.String(),
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: signed, ID: jti, ExpiresAt: exp}, nil
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Parse verifies signature, algorithm, issuer and expiry and returns the
// claims. Any failure is reported as ErrInvalidToken wrapping the cause.
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: bad userId claim", ErrInvalidToken)
	}
	switch claims.UserType {
	case UserTypePatient, UserTypeDoctor, UserTypeAdmin:
	default:
		return nil, fmt.Errorf("%w: bad userType claim", ErrInvalidToken)
	}
	return claims, nil
}
