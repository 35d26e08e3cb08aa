// Package identity verifies bearer tokens against the hosted auth provider.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidToken means the provider does not recognise the token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrProviderUnavailable means the provider could not be asked.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is what the provider knows about a token's subject. Empty strings
// mean the provider did not supply the field.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// metadata mirrors the user_metadata / app_metadata objects shared by the
// REST user payload and the access token claims.
type metadata struct {
	User map[string]any `json:"user_metadata"`
	App  map[string]any `json:"app_metadata"`
}

func (m metadata) apply(out *Identity) {
	out.FullName = stringField(m.User, "full_name")
	out.Name = stringField(m.User, "name")
	out.AvatarURL = stringField(m.User, "avatar_url")
	out.Provider = stringField(m.App, "provider")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
