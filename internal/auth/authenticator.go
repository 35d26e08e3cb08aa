// Package auth resolves bearer tokens to local user records.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

var ErrMalformedAuthHeader = errors.New("malformed authorization header")

// Synchronizer is the part of user.Service the authenticator needs.
type Synchronizer interface {
	Sync(ctx context.Context, p user.Profile) (user.Record, error)
}

type Authenticator struct {
	verifier identity.Verifier
	users    Synchronizer
}

func NewAuthenticator(verifier identity.Verifier, users Synchronizer) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// ParseBearer extracts the token from an Authorization header of the form
// "Bearer <token>". The scheme is matched case-insensitively and the header
// must have exactly two fields.
func ParseBearer(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}
	return parts[1], nil
}

// Authenticate resolves the caller named by an Authorization header. It
// upserts the caller's profile on every call.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (user.Record, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return user.Record{}, err
	}
	rec, _, err := a.Exchange(ctx, token)
	return rec, err
}

// Exchange verifies token, mirrors the identity into the users table and
// returns the stored record together with the normalized profile.
func (a *Authenticator) Exchange(ctx context.Context, token string) (user.Record, user.Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Record{}, user.Profile{}, identity.ErrInvalidToken
	}

	id, err := a.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrProviderUnavailable) {
			return user.Record{}, user.Profile{}, err
		}
		return user.Record{}, user.Profile{}, fmt.Errorf("%w: %w", identity.ErrProviderUnavailable, err)
	}

	profile, err := user.NormalizeProfile(id)
	if err != nil {
		return user.Record{}, user.Profile{}, identity.ErrInvalidToken
	}

	rec, err := a.users.Sync(ctx, profile)
	if err != nil {
		return user.Record{}, user.Profile{}, err
	}
	logger.From(ctx).Debug("user synced", zap.String("user_id", rec.ID))
	return rec, profile, nil
}
