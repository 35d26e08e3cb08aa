package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user/usertest"
)

func TestSyncIsIdempotentAndLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := usertest.NewStore()
	svc := user.NewService(store, user.Options{})

	first, err := svc.Sync(ctx, user.Profile{ID: "u1", Email: ptr("a@x.com"), DisplayName: ptr("Alice")})
	require.NoError(t, err)
	again, err := svc.Sync(ctx, user.Profile{ID: "u1", Email: ptr("a@x.com"), DisplayName: ptr("Alice")})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, first.Email, again.Email)
	require.Equal(t, first.Name, again.Name)
	require.Equal(t, first.CreatedAt, again.CreatedAt)

	latest, err := svc.Sync(ctx, user.Profile{ID: "u1", Email: ptr("new@x.com"), Provider: ptr("github")})
	require.NoError(t, err)
	require.Equal(t, "u1", latest.ID)
	require.Equal(t, ptr("new@x.com"), latest.Email)
	require.Nil(t, latest.Name)
	require.Equal(t, ptr("github"), latest.Provider)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSyncWrapsStoreFailure(t *testing.T) {
	store := usertest.NewStore()
	store.ErrUpsert = errors.New("connection reset")
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "s_total", Help: "s"}, []string{"result"})
	svc := user.NewService(store, user.Options{Syncs: syncs})

	_, err := svc.Sync(context.Background(), user.Profile{ID: "u1"})
	require.ErrorIs(t, err, user.ErrStoreWrite)
}

func TestSyncRejectsMissingID(t *testing.T) {
	svc := user.NewService(usertest.NewStore(), user.Options{})
	_, err := svc.Sync(context.Background(), user.Profile{})
	require.ErrorIs(t, err, user.ErrMissingID)
}

func TestRecordLoginSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	store := usertest.NewStore()
	store.ErrLoginEvent = errors.New("insert failed")
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "f_total", Help: "f"})
	svc := user.NewService(store, user.Options{LoginEventFailures: failures, LoginEventTimeout: time.Second})

	svc.RecordLogin(ctx, user.Profile{ID: "u1"})

	require.Empty(t, store.Events())
	require.Equal(t, 1, logs.FilterMessage("record login event failed").Len())
}

func TestRecordLoginAppendsEvent(t *testing.T) {
	store := usertest.NewStore()
	svc := user.NewService(store, user.Options{})

	svc.RecordLogin(context.Background(), user.Profile{ID: "u1", Provider: ptr("google")})
	svc.RecordLogin(context.Background(), user.Profile{ID: "u1", Provider: ptr("google")})

	events := store.Events()
	require.Len(t, events, 2)
	require.Equal(t, "u1", events[0].AuthUserID)
	require.Equal(t, ptr("google"), events[0].Provider)
}

func TestUpdateOnlyChangesName(t *testing.T) {
	ctx := context.Background()
	store := usertest.NewStore()
	svc := user.NewService(store, user.Options{})

	before, err := svc.Sync(ctx, user.Profile{ID: "u1", Email: ptr("a@x.com"), DisplayName: ptr("Alice"), AvatarURL: ptr("https://img"), Provider: ptr("google")})
	require.NoError(t, err)

	after, err := svc.Update(ctx, "u1", user.Update{Name: ptr("  Alicia "), NameSet: true})
	require.NoError(t, err)
	require.Equal(t, ptr("Alicia"), after.Name)
	require.Equal(t, before.Email, after.Email)
	require.Equal(t, before.AvatarURL, after.AvatarURL)
	require.Equal(t, before.Provider, after.Provider)
	require.Equal(t, before.CreatedAt, after.CreatedAt)

	unchanged, err := svc.Update(ctx, "u1", user.Update{})
	require.NoError(t, err)
	require.Equal(t, after, unchanged)
}

func TestUpdateAndGetMissingUser(t *testing.T) {
	svc := user.NewService(usertest.NewStore(), user.Options{})

	_, err := svc.Update(context.Background(), "nope", user.Update{Name: ptr("x"), NameSet: true})
	require.ErrorIs(t, err, user.ErrNotFound)

	_, err = svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestDeleteMissingUserSucceeds(t *testing.T) {
	svc := user.NewService(usertest.NewStore(), user.Options{})
	require.NoError(t, svc.Delete(context.Background(), "nope"))
}

func TestUpdateAndDeleteWrapWriteFailures(t *testing.T) {
	ctx := context.Background()
	store := usertest.NewStore()
	svc := user.NewService(store, user.Options{})
	_, err := svc.Sync(ctx, user.Profile{ID: "u1"})
	require.NoError(t, err)

	store.ErrWrite = errors.New("disk full")

	_, err = svc.Update(ctx, "u1", user.Update{Name: ptr("x"), NameSet: true})
	require.ErrorIs(t, err, user.ErrStoreWrite)
	require.NotErrorIs(t, err, user.ErrNotFound)

	err = svc.Delete(ctx, "u1")
	require.ErrorIs(t, err, user.ErrStoreWrite)
}

func TestRecentLoginEventsCappedAndDescending(t *testing.T) {
	ctx := context.Background()
	store := usertest.NewStore()
	svc := user.NewService(store, user.Options{})
	for i := 0; i < user.RecentLoginEventsLimit+10; i++ {
		svc.RecordLogin(ctx, user.Profile{ID: "u1"})
	}

	events, err := svc.RecentLoginEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, user.RecentLoginEventsLimit)
	for i := 1; i < len(events); i++ {
		require.False(t, events[i].LoggedInAt.After(events[i-1].LoggedInAt))
	}
}

func TestListReadFailure(t *testing.T) {
	store := usertest.NewStore()
	store.ErrRead = errors.New("timeout")
	svc := user.NewService(store, user.Options{})

	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, user.ErrStoreRead)
}
