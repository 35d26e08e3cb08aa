package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Local verifies HS256 access tokens with the project's JWT secret, without
// a round trip to the provider.
type Local struct {
	secret []byte
}

func NewLocal(secret string) *Local {
	return &Local{secret: []byte(strings.TrimSpace(secret))}
}

type accessClaims struct {
	Email string `json:"email"`
	metadata
	jwt.RegisteredClaims
}

func (l *Local) Verify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(l.secret) == 0 {
		return Identity{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(*jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}

	out := Identity{ID: sub, Email: strings.TrimSpace(claims.Email)}
	claims.metadata.apply(&out)
	return out, nil
}
