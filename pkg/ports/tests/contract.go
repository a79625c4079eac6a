package tests

import (
	"context"
	"testing"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StorageContractTest is a reusable suite that verifies an adapter complies with ports.Storage.
func StorageContractTest(t *testing.T, store ports.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetItem_NotFound", func(t *testing.T) {
		_, err := store.GetItem(ctx, "contract-empty", "missing")
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("SetItem_GetItem", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "contract-a", "visited-keys", `["intro"]`))

		val, err := store.GetItem(ctx, "contract-a", "visited-keys")
		require.NoError(t, err)
		assert.Equal(t, `["intro"]`, val)
	})

	t.Run("SetItem_Overwrites", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "contract-a", "images", `["a"]`))
		require.NoError(t, store.SetItem(ctx, "contract-a", "images", `["a","b"]`))

		val, err := store.GetItem(ctx, "contract-a", "images")
		require.NoError(t, err)
		assert.Equal(t, `["a","b"]`, val)
	})

	t.Run("Sessions_AreIsolated", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "contract-b", "visited-keys", `["memory"]`))

		a, err := store.GetItem(ctx, "contract-a", "visited-keys")
		require.NoError(t, err)
		b, err := store.GetItem(ctx, "contract-b", "visited-keys")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "contract-c", "music-playing", "true"))
		require.NoError(t, store.RemoveItem(ctx, "contract-c", "music-playing"))

		_, err := store.GetItem(ctx, "contract-c", "music-playing")
		assert.ErrorIs(t, err, domain.ErrItemNotFound)

		// Absent keys are fine.
		assert.NoError(t, store.RemoveItem(ctx, "contract-c", "music-playing"))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "contract-d", "visited-keys", `["intro"]`))
		require.NoError(t, store.SetItem(ctx, "contract-d", "images", `[]`))
		require.NoError(t, store.Clear(ctx, "contract-d"))

		_, err := store.GetItem(ctx, "contract-d", "visited-keys")
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
		_, err = store.GetItem(ctx, "contract-d", "images")
		assert.ErrorIs(t, err, domain.ErrItemNotFound)

		// Other sessions survive.
		_, err = store.GetItem(ctx, "contract-a", "visited-keys")
		assert.NoError(t, err)
	})

	t.Run("Clear_Unknown", func(t *testing.T) {
		assert.NoError(t, store.Clear(ctx, "contract-never-seen"))
	})
}
