package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	return NewStore(path, zap.NewNop()), path
}

func TestLoadMissingFileYieldsEmptyState(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	store.Load()

	assert.Empty(t, store.SeenIDs())
	assert.False(t, store.Seen("Resolução BCB-403"))
}

func TestLoadCorruptFileYieldsEmptyState(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store.Load()
	assert.Empty(t, store.SeenIDs())
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	store.Load()
	store.MarkSeen("Resolução BCB-403")
	store.MarkSeen("Resolução BCB-404")

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(now))

	reloaded := NewStore(path, zap.NewNop())
	reloaded.Load()

	assert.Equal(t, []string{"Resolução BCB-403", "Resolução BCB-404"}, reloaded.SeenIDs())
	assert.True(t, reloaded.Seen("Resolução BCB-403"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		SeenIDs   []string `json:"seenIds"`
		LastCheck string   `json:"lastCheck"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2025-03-10T12:00:00Z", doc.LastCheck)
}

func TestSaveTruncatesToMostRecent(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	store.Load()

	for i := 0; i < seenIDCap+40; i++ {
		store.MarkSeen(fmt.Sprintf("Resolução BCB-%d", i))
	}
	require.NoError(t, store.Save(time.Now()))

	ids := store.SeenIDs()
	require.Len(t, ids, seenIDCap)

	// FIFO eviction: the oldest 40 are gone, the newest survive.
	assert.Equal(t, "Resolução BCB-40", ids[0])
	assert.Equal(t, fmt.Sprintf("Resolução BCB-%d", seenIDCap+39), ids[len(ids)-1])
}

// Known edge case, preserved on purpose: once an id ages out of the bounded
// history, a resurfaced item with that id would be notified again.
func TestEvictedIDIsNoLongerSeen(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	store.Load()

	store.MarkSeen("Resolução BCB-1")
	for i := 2; i <= seenIDCap+1; i++ {
		store.MarkSeen(fmt.Sprintf("Resolução BCB-%d", i))
	}
	require.NoError(t, store.Save(time.Now()))

	assert.False(t, store.Seen("Resolução BCB-1"))
	assert.True(t, store.Seen("Resolução BCB-2"))
}
