package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRegion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var got cachedRegion
	hit, err := store.GetJSON(ctx, "region:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, store.SetJSON(ctx, "region:1", cachedRegion{ID: "1", Name: "North"}, time.Minute))
	hit, err = store.GetJSON(ctx, "region:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "North", got.Name)

	require.NoError(t, store.Delete(ctx, "region:1"))
	hit, err = store.GetJSON(ctx, "region:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetJSON(ctx, "city:york", "r1", 5*time.Minute))

	var id string
	hit, err := store.GetJSON(ctx, "city:york", &id)
	require.NoError(t, err)
	assert.True(t, hit)

	now = now.Add(6 * time.Minute)
	hit, err = store.GetJSON(ctx, "city:york", &id)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisStoreRequiresClient(t *testing.T) {
	var store *RedisStore
	_, err := store.GetJSON(context.Background(), "k", new(string))
	assert.Error(t, err)
}
