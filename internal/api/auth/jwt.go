package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/api/authz"
	"github.com/turfconnect/turfconnect/internal/db"
)

var (
	ErrTokenInvalid = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token expired")
)

// accessClaims are the JWT claims carried by an access token. Phone and role
// ride along so middleware can build an authz.AuthUser without a DB lookup.
type accessClaims struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies short-lived access tokens with HMAC-SHA256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: realClock{}}
}

// WithClock overrides the issuer's time source. Test hook.
func (i *TokenIssuer) WithClock(clock Clock) *TokenIssuer {
	i.clock = clock
	return i
}

// IssueAccessToken mints a signed token for the user and returns it with its
// expiry.
func (i *TokenIssuer) IssueAccessToken(user db.User) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	claims := accessClaims{
		Phone: user.Phone,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies a token and returns the authenticated user it
// encodes.
func (i *TokenIssuer) ParseAccessToken(tokenString string) (*authz.AuthUser, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &authz.AuthUser{
		ID:    claims.Subject,
		Phone: claims.Phone,
		Role:  claims.Role,
	}, nil
}
