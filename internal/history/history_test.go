package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
	assert.False(t, store.Contains("500325_100"))
}

func TestNewStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path, zerolog.Nop())
	assert.Error(t, err)
}

func TestAddAndContains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)

	store.Add("500325_100")
	store.Add("500325_100")
	store.Add("532540_200")

	assert.True(t, store.Contains("500325_100"))
	assert.True(t, store.Contains("532540_200"))
	assert.False(t, store.Contains("500180_300"))
	assert.Equal(t, 2, store.Count())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	store.Add("500325_100")
	store.Add("532540_200")
	require.NoError(t, store.Save())

	reloaded, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())
	assert.True(t, reloaded.Contains("500325_100"))
	assert.True(t, reloaded.Contains("532540_200"))
}

func TestSavePreservesInsertionOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	store.Add("b_2")
	store.Add("a_1")
	store.Add("c_3")
	require.NoError(t, store.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var state struct {
		Processed []string `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, []string{"b_2", "a_1", "c_3"}, state.Processed)
}

func TestLoadDeduplicatesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	payload := `{"processed": ["500325_100", "500325_100", "532540_200"]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed.json")

	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	store.Add("500325_100")
	require.NoError(t, store.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "processed.json", entries[0].Name())
}
