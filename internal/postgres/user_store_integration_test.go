//go:build integration

package postgres

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

func strp(s string) *string { return &s }

func uniqueID(prefix string) string {
	return prefix + "-" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

func TestUserStoreUpsertOverwritesMutableFields(t *testing.T) {
	ctx, store := withTx(t)
	id := uniqueID("upsert")

	first, err := store.Upsert(ctx, user.Profile{ID: id, Email: strp("a@x.com"), DisplayName: strp("Alice"), Provider: strp("google")})
	require.NoError(t, err)
	require.Equal(t, id, first.ID)
	require.Nil(t, first.AvatarURL)

	second, err := store.Upsert(ctx, user.Profile{ID: id, Email: strp("b@x.com")})
	require.NoError(t, err)
	require.Equal(t, id, second.ID)
	require.Equal(t, strp("b@x.com"), second.Email)
	require.Nil(t, second.Name)
	require.Nil(t, second.Provider)
	require.Equal(t, first.CreatedAt, second.CreatedAt)

	found, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, second.Email, found.Email)
}

func TestUserStoreUpdateNameKeepsOtherFields(t *testing.T) {
	ctx, store := withTx(t)
	id := uniqueID("update")

	before, err := store.Upsert(ctx, user.Profile{ID: id, Email: strp("a@x.com"), DisplayName: strp("Alice"), AvatarURL: strp("https://img"), Provider: strp("github")})
	require.NoError(t, err)

	after, err := store.Update(ctx, id, user.Update{Name: strp("Alicia"), NameSet: true})
	require.NoError(t, err)
	require.Equal(t, strp("Alicia"), after.Name)
	require.Equal(t, before.Email, after.Email)
	require.Equal(t, before.AvatarURL, after.AvatarURL)
	require.Equal(t, before.Provider, after.Provider)

	_, err = store.Update(ctx, uniqueID("missing"), user.Update{Name: strp("x"), NameSet: true})
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserStoreDeleteIsUnconditional(t *testing.T) {
	ctx, store := withTx(t)
	id := uniqueID("delete")

	_, err := store.Upsert(ctx, user.Profile{ID: id})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id))

	_, err = store.FindByID(ctx, id)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserStoreLoginEventsNewestFirst(t *testing.T) {
	ctx, store := withTx(t)
	id := uniqueID("events")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertLoginEvent(ctx, user.Profile{ID: id, Provider: strp("google")}))
	}

	events, err := store.ListRecentLoginEvents(ctx, user.RecentLoginEventsLimit)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.LessOrEqual(t, len(events), user.RecentLoginEventsLimit)
	for i := 1; i < len(events); i++ {
		require.False(t, events[i].LoggedInAt.After(events[i-1].LoggedInAt))
	}
}
