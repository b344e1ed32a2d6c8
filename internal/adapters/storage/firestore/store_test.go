package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// newEmulatorStore connects to the emulator named by FIRESTORE_EMULATOR_HOST.
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore store test")
	}

	s, err := NewStore(context.Background(), "aiva-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore_RequiresProject(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestStore_GetMissing(t *testing.T) {
	s := newEmulatorStore(t)

	v, ok, err := s.Get(context.Background(), "aivaChatHistory_"+uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetThenGet(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	// Slashes are not allowed in document ids.
	key := "aivaChatHistory_" + uuid.NewString() + "/a@b.c"

	require.NoError(t, s.Set(ctx, key, `[{"id":"chat-1"}]`))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"chat-1"}]`, v)

	snap, err := s.blobDoc(key).Get(ctx)
	require.NoError(t, err)
	var doc blobDoc
	require.NoError(t, snap.DataTo(&doc))
	assert.Equal(t, key, doc.Key)
	assert.True(t, fixed.Equal(doc.UpdatedAt))

	require.NoError(t, s.Set(ctx, key, ""))
	v, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}
