package tenant

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// Claims carries the actor identity in a signed HS256 JWT.
type Claims struct {
	jwt.RegisteredClaims
	Role             domain.Role `json:"role"`
	AllowedClientIDs []string    `json:"allowed_client_ids"`
}

// TokenIssuer signs and validates Claims with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer; ttl defaults to 12h if zero.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for actor, valid from now for the issuer's TTL.
func (ti *TokenIssuer) Issue(actor Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Role:             actor.Role,
		AllowedClientIDs: actor.AllowedClientIDs,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", apperrors.Internal("sign token", err)
	}
	return signed, nil
}

// Validate parses a token and returns the Actor it carries.
func (ti *TokenIssuer) Validate(tokenString string) (Actor, error) {
	tokenString = strings.TrimSpace(tokenString)
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return Actor{}, apperrors.Unauthenticated("missing token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, apperrors.Unauthenticated("invalid or expired token")
	}

	return Actor{
		UserID:           claims.Subject,
		Role:             claims.Role,
		AllowedClientIDs: claims.AllowedClientIDs,
	}, nil
}
