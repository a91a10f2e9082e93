package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func TestNewConfigStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.DirExists(t, dir)
	_, ok := store.Get("corpus.source")
	assert.False(t, ok)
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultDirName, "config.toml"), store.Path())
}

func TestNewConfigStore_Errors(t *testing.T) {
	t.Run("unwritable directory", func(t *testing.T) {
		store, err := NewConfigStore("/dev/null/sitesage")

		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "[corpus\nsource = ")

		store, err := NewConfigStore(dir)

		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[corpus]
source = "https://www.csusb.edu/its"
max_depth = 3
exclude = ["/its/archive", "/its/news"]

[retrieval]
k = 5
score_threshold = 0.65

[scheduler]
interval = "30m"
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://www.csusb.edu/its", store.GetString("corpus.source"))
	assert.Equal(t, 3, store.GetInt("corpus.max_depth"))
	assert.Equal(t, []string{"/its/archive", "/its/news"}, store.GetStringSlice("corpus.exclude"))
	assert.Equal(t, 5, store.GetInt("retrieval.k"))
	assert.InDelta(t, 0.65, store.GetFloat("retrieval.score_threshold"), 1e-9)
	assert.Equal(t, "30m", store.GetString("scheduler.interval"))

	_, ok := store.Get("corpus")
	assert.False(t, ok, "tables are addressed by their leaf keys only")
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("corpus.source", "https://www.csusb.edu/its"))
	require.NoError(t, store.Set("corpus.exclude", []string{"/its/archive"}))
	require.NoError(t, store.Set("retrieval.k", 3))
	require.NoError(t, store.Set("scheduler.interval", "1h"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"corpus.source"`)

	var onDisk map[string]any
	require.NoError(t, toml.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string]any{
		"source":  "https://www.csusb.edu/its",
		"exclude": []any{"/its/archive"},
	}, onDisk["corpus"])
	assert.Equal(t, map[string]any{"k": int64(3)}, onDisk["retrieval"])
	assert.Equal(t, map[string]any{"interval": "1h"}, onDisk["scheduler"])
}

func TestConfigStore_RoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("corpus.source", "https://example.com/docs"))
	require.NoError(t, store.Set("corpus.requests_per_second", 2.5))
	require.NoError(t, store.Set("retrieval.k", 3))
	require.NoError(t, store.Set("retrieval.score_threshold", 0.7))
	require.NoError(t, store.Set("storage.backend", "qdrant"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	// Both the writing store and a fresh reader see the same values,
	// although TOML hands integers back as int64.
	for _, s := range []*ConfigStore{store, reloaded} {
		assert.Equal(t, "https://example.com/docs", s.GetString("corpus.source"))
		assert.InDelta(t, 2.5, s.GetFloat("corpus.requests_per_second"), 1e-9)
		assert.Equal(t, 3, s.GetInt("retrieval.k"))
		assert.InDelta(t, 3.0, s.GetFloat("retrieval.k"), 1e-9)
		assert.InDelta(t, 0.7, s.GetFloat("retrieval.score_threshold"), 1e-9)
		assert.Equal(t, "qdrant", s.GetString("storage.backend"))
	}
	raw, ok := reloaded.Get("retrieval.k")
	require.True(t, ok)
	assert.IsType(t, int64(0), raw)
}

func TestConfigStore_SetKeepsSiblingKeys(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("retrieval.k", 3))
	require.NoError(t, store.Set("retrieval.score_threshold", 0.7))
	require.NoError(t, store.Set("retrieval.k", 5))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, reloaded.GetInt("retrieval.k"))
	assert.InDelta(t, 0.7, reloaded.GetFloat("retrieval.score_threshold"), 1e-9)
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("corpus.source", "https://example.com"))
	require.NoError(t, store.Set("retrieval.k", 3))

	assert.Zero(t, store.GetInt("corpus.source"))
	assert.Zero(t, store.GetFloat("corpus.source"))
	assert.False(t, store.GetBool("corpus.source"))
	assert.Nil(t, store.GetStringSlice("retrieval.k"))
	assert.Empty(t, store.GetString("retrieval.k"))
	assert.Empty(t, store.GetString("llm.model"))
	assert.Nil(t, store.GetStringSlice("corpus.exclude"))
}

func TestConfigStore_GetBool(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[corpus]\nfollow_redirects = true\n")
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.True(t, store.GetBool("corpus.follow_redirects"))
	assert.False(t, store.GetBool("corpus.missing"))
}

func TestConfigStore_Load(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("corpus.source", "https://old.example.com"))

	t.Run("picks up external edits", func(t *testing.T) {
		writeConfig(t, dir, "[corpus]\nsource = \"https://new.example.com\"\n")

		require.NoError(t, store.Load())
		assert.Equal(t, "https://new.example.com", store.GetString("corpus.source"))
	})

	t.Run("empty file", func(t *testing.T) {
		writeConfig(t, dir, "")

		require.NoError(t, store.Load())
		_, ok := store.Get("corpus.source")
		assert.False(t, ok)
	})

	t.Run("missing file resets", func(t *testing.T) {
		require.NoError(t, store.Set("retrieval.k", 3))
		require.NoError(t, os.Remove(store.Path()))

		require.NoError(t, store.Load())
		_, ok := store.Get("retrieval.k")
		assert.False(t, ok)
	})

	t.Run("invalid file", func(t *testing.T) {
		writeConfig(t, dir, "retrieval = ][")

		assert.Error(t, store.Load())
	})
}

func TestConfigStore_SaveErrors(t *testing.T) {
	t.Run("value not representable in TOML", func(t *testing.T) {
		store, _ := newTestStore(t)

		assert.Error(t, store.Set("scheduler.interval", make(chan int)))
	})

	t.Run("path is a directory", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, os.Mkdir(store.Path(), 0700))

		assert.Error(t, store.Set("retrieval.k", 3))
		assert.Error(t, store.Save())
	})
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, dir := newTestStore(t)
	keys := []string{"retrieval.k", "chunking.chunk_size", "chunking.overlap", "corpus.max_depth"}

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(key string, value int) {
			defer wg.Done()
			assert.NoError(t, store.Set(key, value))
			_ = store.GetInt(key)
		}(key, i+1)
	}
	wg.Wait()

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	for i, key := range keys {
		assert.Equal(t, i+1, reloaded.GetInt(key), key)
	}
}

func TestNestMap_FlattenMapInverse(t *testing.T) {
	flat := map[string]any{
		"corpus.source":             "https://example.com",
		"corpus.exclude":            []string{"/a"},
		"retrieval.k":               3,
		"retrieval.score_threshold": 0.7,
		"scheduler.interval":        "30m",
		"version":                   1,
	}

	nested := nestMap(flat)

	assert.Equal(t, map[string]any{"k": 3, "score_threshold": 0.7}, nested["retrieval"])
	assert.Equal(t, 1, nested["version"])
	assert.Equal(t, flat, flattenMap(nested, ""))
}

func TestNestMap_ScalarWinsOverTable(t *testing.T) {
	nested := nestMap(map[string]any{
		"llm":                  "scalar",
		"llm.model":            "dropped",
		"embedding.model":      "all-minilm",
		"embedding.dimensions": 384,
	})

	assert.Equal(t, "scalar", nested["llm"])
	assert.Equal(t, map[string]any{"model": "all-minilm", "dimensions": 384}, nested["embedding"])
}
