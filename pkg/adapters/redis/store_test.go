package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/manas360/stepwise/pkg/adapters/redis"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)

	store := redis.NewFromClient(client)
	ports.RunRecordStoreContract(t, store)
}

func TestRedisStore_Keys(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, ports.NewContractRecord("r1", "Asha", time.Now())))

	assert.True(t, mr.Exists("test:record:r1"))
	members, err := mr.ZMembers("test:patient:Asha")
	require.NoError(t, err)
	assert.Equal(t, []string{"00000000000000000001:r1"}, members)
	assert.Equal(t, "1", mustGet(t, mr, "test:seq"))

	require.NoError(t, store.Delete(ctx, "r1"))
	assert.False(t, mr.Exists("test:record:r1"))
	remaining, _ := mr.ZMembers("test:patient:Asha")
	assert.Empty(t, remaining)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	val, err := mr.Get(key)
	require.NoError(t, err)
	return val
}

func TestRedisStore_SameMillisecondNewestAppendFirst(t *testing.T) {
	_, client := newMiniredis(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, ports.NewContractRecord("z-first", "Asha", ts)))
	require.NoError(t, store.Append(ctx, ports.NewContractRecord("a-second", "Asha", ts.Add(300*time.Microsecond))))

	for _, filter := range []ports.RecordFilter{{}, {PatientIdentifier: "Asha"}} {
		records, err := store.List(ctx, filter)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a-second", records[0].ID)
		assert.Equal(t, "z-first", records[1].ID)
	}
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	// 1. Append
	require.NoError(t, store.Append(ctx, ports.NewContractRecord("rec-ttl", "Asha", time.Now())))

	// 2. Verify List (immediately)
	records, err := store.List(ctx, ports.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// 3. Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	// 4. Verify Get (should fail)
	_, err = store.Get(ctx, "rec-ttl")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	// 5. Verify List skips and prunes the stale index entry
	records, err = store.List(ctx, ports.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	members, err := mr.ZMembers(redis.DefaultPrefix + "index")
	if err == nil {
		assert.Empty(t, members)
	}
}
