package user_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

func TestNormalizeProfileDisplayNameFallback(t *testing.T) {
	cases := []struct {
		name string
		in   identity.Identity
		want *string
	}{
		{"full name wins", identity.Identity{ID: "u1", FullName: "Alice A", Name: "alice"}, ptr("Alice A")},
		{"name fallback", identity.Identity{ID: "u1", Name: "alice"}, ptr("alice")},
		{"blank full name falls through", identity.Identity{ID: "u1", FullName: "  ", Name: "alice"}, ptr("alice")},
		{"absent", identity.Identity{ID: "u1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := user.NormalizeProfile(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, p.DisplayName)
		})
	}
}

func TestNormalizeProfileCopiesOptionalFields(t *testing.T) {
	p, err := user.NormalizeProfile(identity.Identity{
		ID:       " u1 ",
		Email:    "a@x.com",
		Provider: "google",
	})
	require.NoError(t, err)
	require.Equal(t, "u1", p.ID)
	require.Equal(t, ptr("a@x.com"), p.Email)
	require.Equal(t, ptr("google"), p.Provider)
	require.Nil(t, p.AvatarURL)
}

func TestNormalizeProfileRequiresID(t *testing.T) {
	_, err := user.NormalizeProfile(identity.Identity{Email: "a@x.com"})
	require.ErrorIs(t, err, user.ErrMissingID)
}

func ptr(s string) *string { return &s }
