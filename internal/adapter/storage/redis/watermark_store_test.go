package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkStore_Get_Empty(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWatermarkStore(client)

	seq, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should have no watermark")
	assert.Equal(t, uint64(0), seq)
}

func TestWatermarkStore_SetThenGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWatermarkStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 42))

	seq, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), seq)
}

func TestWatermarkStore_SetOverwrites(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWatermarkStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 10))
	require.NoError(t, store.Set(ctx, 25))

	seq, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(25), seq)
}

func TestWatermarkStore_Get_Corrupt(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWatermarkStore(client)

	require.NoError(t, s.Set(watermarkKey, "not-a-number"))

	_, _, err := store.Get(context.Background())
	assert.Error(t, err)
}
