package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	storage, err := NewRedisStorage("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage, mr
}

func TestStorageSetGet(t *testing.T) {
	storage, _ := newTestStorage(t)

	require.NoError(t, storage.Set("k", []byte("v"), 0))
	val, err := storage.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestStorageGetMissingKeyReturnsNil(t *testing.T) {
	storage, _ := newTestStorage(t)

	val, err := storage.Get("absent")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStorageExpiration(t *testing.T) {
	storage, mr := newTestStorage(t)

	require.NoError(t, storage.Set("k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	val, err := storage.Get("k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStorageDeleteAndReset(t *testing.T) {
	storage, _ := newTestStorage(t)

	require.NoError(t, storage.Set("a", []byte("1"), 0))
	require.NoError(t, storage.Set("b", []byte("2"), 0))

	require.NoError(t, storage.Delete("a"))
	val, err := storage.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, storage.Reset())
	val, err = storage.Get("b")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestNewRedisStorageBadURL(t *testing.T) {
	_, err := NewRedisStorage("not-a-url")
	assert.Error(t, err)
}
