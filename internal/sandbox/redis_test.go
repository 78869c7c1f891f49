package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisRepository on it
func setupTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client), mr
}

func TestRedisRepository_RoundTrip(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	cart := &Cart{
		ID:    "cart-1",
		Owner: "session:abc",
		Lines: []Line{
			{ID: "l1", ProductID: "P1", Size: "7", Quantity: 2},
			{ID: "l2", ProductID: "P2", Quantity: 1},
		},
		CouponCode: "WELCOME15",
	}
	require.NoError(t, repo.Save(ctx, cart))
	assert.True(t, mr.Exists("cart:session:abc"))

	got, err := repo.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", got.ID)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, "7", got.Lines[0].Size)
	assert.Equal(t, "WELCOME15", got.CouponCode)
}

func TestRedisRepository_Miss(t *testing.T) {
	repo, _ := setupTestRedis(t)

	got, err := repo.Get(context.Background(), "session:none")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, got)
}

func TestRedisRepository_InvalidJSON(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cartKey("session:bad"), "{not json"))

	_, err := repo.Get(context.Background(), "session:bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCartNotFound)
}

func TestRedisRepository_TTLWithJitter(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, repo.Save(context.Background(), &Cart{ID: "c", Owner: "user:1"}))

	ttl := mr.TTL(cartKey("user:1"))
	assert.GreaterOrEqual(t, ttl, defaultCartTTL)
	assert.Less(t, ttl, defaultCartTTL+time.Hour)

	mr.FastForward(defaultCartTTL + time.Hour)
	_, err := repo.Get(context.Background(), "user:1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestRedisRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &Cart{ID: "c", Owner: "user:2"}))

	require.NoError(t, repo.Delete(ctx, "user:2"))
	assert.False(t, mr.Exists(cartKey("user:2")))
	require.NoError(t, repo.Delete(ctx, "user:2"), "deleting a missing cart is fine")
}

func TestRedisRepository_Unavailable(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "user:3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get failed")
}
