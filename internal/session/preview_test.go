package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oncohub.org/internal/access"
)

func newStore(t *testing.T) (*PreviewStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewPreviewStore(client)
	require.NoError(t, err)
	return store, mr
}

func TestPreviewRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	_, ok, err := store.Preview(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetPreview(ctx, "sess-1", access.RoleIndustryPartner, time.Minute))
	role, ok, err := store.Preview(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, access.RoleIndustryPartner, role)

	_, ok, err = store.Preview(ctx, "sess-2")
	require.NoError(t, err)
	assert.False(t, ok, "previews are scoped to one session")

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Preview(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok, "previews expire")
}

func TestClearPreview(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	require.NoError(t, store.SetPreview(ctx, "sess-1", access.RoleClinician, time.Minute))
	require.NoError(t, store.ClearPreview(ctx, "sess-1"))
	_, ok, err := store.Preview(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetPreviewValidation(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)
	assert.ErrorIs(t, store.SetPreview(ctx, "", access.RoleClinician, time.Minute), access.ErrNotAuthenticated)
	assert.ErrorIs(t, store.SetPreview(ctx, "s", access.PlatformRole("root"), time.Minute), access.ErrInvalidInput)
	assert.ErrorIs(t, store.SetPreview(ctx, "s", access.RoleClinician, 0), access.ErrInvalidInput)

	require.NoError(t, mr.Set(keyPrefix+"s", "root"))
	_, ok, err := store.Preview(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok, "unknown stored roles are ignored")
}

func TestPingFollowsRedis(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)
	require.NoError(t, store.Ping(ctx))

	mr.Close()
	assert.Error(t, store.Ping(ctx))
}
