package user

import (
	"errors"
	"strings"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
)

var ErrMissingID = errors.New("identity has no subject id")

// NormalizeProfile maps a provider identity onto a Profile. The display name
// prefers the full name and falls back to the plain name.
func NormalizeProfile(id identity.Identity) (Profile, error) {
	subject := strings.TrimSpace(id.ID)
	if subject == "" {
		return Profile{}, ErrMissingID
	}
	displayName := optional(id.FullName)
	if displayName == nil {
		displayName = optional(id.Name)
	}
	return Profile{
		ID:          subject,
		Email:       optional(id.Email),
		DisplayName: displayName,
		AvatarURL:   optional(id.AvatarURL),
		Provider:    optional(id.Provider),
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
