package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("# "+name), 0o644))
	}
}

func TestExpandDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.md", "a.MD", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0o755))
	single := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	paths, err := expandDocuments([]string{dir, single})

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.MD"),
		filepath.Join(dir, "b.md"),
		single,
	}, paths)
}

func TestExpandDocuments_Missing(t *testing.T) {
	_, err := expandDocuments([]string{filepath.Join(t.TempDir(), "nope")})

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestCmd(t *testing.T) {
	c := setupTestDeps(t)
	retrieval := &mockRetrieval{}
	c.retrieval = retrieval
	dir := t.TempDir()
	writeFiles(t, dir, "one.md", "two.md")

	out, err := execute(t, "", "ingest", "--parallel", "2", dir)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "one.md"), filepath.Join(dir, "two.md")}, retrieval.ingested)
	assert.Contains(t, out, "Ingested 2/2 documents")
}

func TestIngestCmd_PartialFailure(t *testing.T) {
	c := setupTestDeps(t)
	dir := t.TempDir()
	writeFiles(t, dir, "one.md", "two.md", "three.md")
	bad := filepath.Join(dir, "two.md")
	retrieval := &mockRetrieval{failFor: map[string]bool{bad: true}}
	c.retrieval = retrieval

	out, err := execute(t, "", "ingest", dir)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestion)
	assert.Len(t, retrieval.ingested, 2)
	assert.Contains(t, out, "Ingested 2/3 documents")
}

func TestIngestCmd_NoDocuments(t *testing.T) {
	setupTestDeps(t)

	out, err := execute(t, "", "ingest", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, out, "No markdown documents found.")
}

func TestIngestCmd_RequiresPath(t *testing.T) {
	setupTestDeps(t)

	_, err := execute(t, "", "ingest")

	assert.Error(t, err)
}
