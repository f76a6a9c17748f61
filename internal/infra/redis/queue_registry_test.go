package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestQueueRegistryAcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewQueueRegistry(newClient(mr))
	ctx := context.Background()

	ok, err := reg.TryAcquire(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("quiz:queue:u1"))

	ok, err = reg.TryAcquire(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, reg.Release(ctx, "u1"))
	require.False(t, mr.Exists("quiz:queue:u1"))
	members, _ := mr.ZMembers(queueIndexKey)
	require.Empty(t, members)
}

func TestQueueRegistrySweep(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewQueueRegistry(newClient(mr))
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	reg.clock = func() time.Time { return now }

	_, _ = reg.TryAcquire(ctx, "old")
	now = now.Add(5 * time.Minute)
	_, _ = reg.TryAcquire(ctx, "fresh")

	n, err := reg.Sweep(ctx, 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, mr.Exists("quiz:queue:old"))
	require.True(t, mr.Exists("quiz:queue:fresh"))

	n, err = reg.Sweep(ctx, 2*time.Minute)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestQueueRegistrySweepKeepsReacquiredSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewQueueRegistry(newClient(mr))
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	reg.clock = func() time.Time { return now }

	fresh := now.Add(5 * time.Minute)
	// index still holds the old score while the slot itself was re-acquired
	require.NoError(t, mr.Set("quiz:queue:u1", strconv.FormatInt(fresh.UnixMilli(), 10)))
	_, err := mr.ZAdd(queueIndexKey, float64(now.UnixMilli()), "u1")
	require.NoError(t, err)
	_, err = mr.ZAdd(queueIndexKey, float64(now.UnixMilli()), "gone")
	require.NoError(t, err)

	now = fresh
	n, err := reg.Sweep(ctx, 2*time.Minute)
	require.NoError(t, err)
	require.Zero(t, n)
	require.True(t, mr.Exists("quiz:queue:u1"))

	score, err := mr.ZScore(queueIndexKey, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(fresh.UnixMilli()), score)
	members, _ := mr.ZMembers(queueIndexKey)
	require.Equal(t, []string{"u1"}, members)
}

func TestQueueRegistryClear(t *testing.T) {
	mr := miniredis.RunT(t)
	reg := NewQueueRegistry(newClient(mr))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _ = reg.TryAcquire(ctx, id)
	}
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, reg.Clear(ctx))
	require.False(t, mr.Exists("quiz:queue:a"))
	require.False(t, mr.Exists(queueIndexKey))
	require.True(t, mr.Exists("other:key"))

	ok, err := reg.TryAcquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
