package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewStoreFromClient(client)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return mr, store
}

func TestStore_GetMissing(t *testing.T) {
	_, store := setupMiniredis(t)

	v, ok, err := store.Get(context.Background(), "aivaChatHistory_nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetThenGet(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "aivaChatHistory_u1", `[]`))

	v, ok, err := store.Get(ctx, "aivaChatHistory_u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	raw, err := mr.Get("aivaChatHistory_u1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
}

func TestStore_ServerError(t *testing.T) {
	mr, store := setupMiniredis(t)
	mr.SetError("ERR server unavailable")

	_, _, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, store.Set(context.Background(), "k", "v"), domain.ErrStorage)
}

func TestNewStore_BadURL(t *testing.T) {
	_, err := NewStore(context.Background(), "not a url")
	assert.ErrorIs(t, err, domain.ErrStorage)
}
