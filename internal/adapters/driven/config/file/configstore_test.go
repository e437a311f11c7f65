package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), store.Path())
	_, ok := store.Get("storage.backend")
	assert.False(t, ok)
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".vidrag", "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_DirectoryIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	_, err := NewConfigStore(file)

	assert.Error(t, err)
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("storage = [unclosed"), 0600))

	_, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[storage]
backend = "postgres"
table = "support_pages"

[retrieval]
match_threshold = 0.6
match_count = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	tests := []struct {
		key  string
		want any
	}{
		{"storage.backend", "postgres"},
		{"storage.table", "support_pages"},
		{"retrieval.match_threshold", 0.6},
		{"retrieval.match_count", int64(5)},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("storage.backend", "qdrant"))
	require.NoError(t, store.Set("storage.qdrant_addr", "localhost:6334"))
	require.NoError(t, store.Set("retrieval.chunk_size", 800))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[storage]")
	assert.Contains(t, string(raw), "[retrieval]")
	assert.NotContains(t, string(raw), "'storage.backend'")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	backend, _ := reloaded.Get("storage.backend")
	assert.Equal(t, "qdrant", backend)
	size, _ := reloaded.Get("retrieval.chunk_size")
	assert.Equal(t, int64(800), size)
}

func TestConfigStore_Unset(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("llm.provider", "openai"))

	require.NoError(t, store.Unset("llm.model"))
	require.NoError(t, store.Unset("llm.model"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := reloaded.Get("llm.model")
	assert.False(t, ok)
	provider, _ := reloaded.Get("llm.provider")
	assert.Equal(t, "openai", provider)
}

func TestConfigStore_Load_PicksUpExternalEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("server.port", 3000))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[server]\nport = 8080\n"), 0600))
	require.NoError(t, store.Load())

	port, _ := store.Get("server.port")
	assert.Equal(t, int64(8080), port)
}

func TestConfigStore_Load_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("paths.videos", "/srv/videos"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())

	_, ok := store.Get("paths.videos")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.api_key", "sk-test"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SetUnencodableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("queue.handler", func() {})

	assert.Error(t, err)
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("queue.workers", n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get("queue.workers")
		}()
	}
	wg.Wait()

	_, ok := store.Get("queue.workers")
	assert.True(t, ok)
}

func TestNestMap_ScalarWinsOverTable(t *testing.T) {
	nested := nestMap(map[string]any{
		"llm":                  "openai",
		"llm.model":            "gpt-4o",
		"retrieval.chunk_size": 1000,
	})

	assert.Equal(t, "openai", nested["llm"])
	assert.Equal(t, map[string]any{"chunk_size": 1000}, nested["retrieval"])
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"storage": map[string]any{
			"backend": "sqlite",
			"sqlite":  map[string]any{"path": "/tmp/db"},
		},
		"top": true,
	}, "")

	assert.Equal(t, map[string]any{
		"storage.backend":     "sqlite",
		"storage.sqlite.path": "/tmp/db",
		"top":                 true,
	}, flat)
}
