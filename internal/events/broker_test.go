package events

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

func recv(t *testing.T, ch <-chan access.Change) access.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return access.Change{}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	one := b.Subscribe(ctx)
	two := b.Subscribe(ctx)
	assert.Equal(t, 2, b.Subscribers())

	b.PermissionsChanged(context.Background(), access.Change{Kind: access.ChangeKindOverrideSet, TargetUserID: "u1"})
	assert.Equal(t, "u1", recv(t, one).TargetUserID)
	assert.Equal(t, "u1", recv(t, two).TargetUserID)

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-one
	assert.False(t, open)
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	for i := 0; i < 100; i++ {
		b.Publish(access.Change{Kind: access.ChangeKindRoleDefaultSet})
	}
	assert.Len(t, ch, cap(ch))
}

func TestRelayAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerA, brokerB := NewBroker(), NewBroker()
	relayA, err := NewRelay(newClient(), brokerA, "", nil)
	require.NoError(t, err)
	relayB, err := NewRelay(newClient(), brokerB, "", nil)
	require.NoError(t, err)
	go func() { _ = relayA.Run(ctx) }()
	go func() { _ = relayB.Run(ctx) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) == 1 && mr.PubSubNumSub(DefaultChannel)[DefaultChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	localA := brokerA.Subscribe(ctx)
	remoteB := brokerB.Subscribe(ctx)

	lvl := access.AccessEdit
	brokerA.PermissionsChanged(ctx, access.Change{Kind: access.ChangeKindOverrideSet, TargetUserID: "u9", Space: access.SpaceTasks, Level: &lvl})

	got := recv(t, remoteB)
	assert.Equal(t, "u9", got.TargetUserID)
	require.NotNil(t, got.Level)
	assert.Equal(t, access.AccessEdit, *got.Level)

	assert.Equal(t, "u9", recv(t, localA).TargetUserID)
	select {
	case dup := <-localA:
		t.Fatalf("origin instance received its own change twice: %+v", dup)
	case <-time.After(100 * time.Millisecond):
	}
}
