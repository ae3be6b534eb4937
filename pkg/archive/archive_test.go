package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndContains(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "archive.txt"))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Contains("https://host/a.jpg"))
	require.NoError(t, a.Add("https://host/a.jpg"))
	assert.True(t, a.Contains("https://host/a.jpg"))
	assert.Equal(t, 1, a.Len())
}

func TestAddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.txt")
	a, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, a.Add("https://host/a.jpg"))
	require.NoError(t, a.Add("https://host/a.jpg"))
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "https://host/a.jpg"))
}

func TestOpenReloadsPersistedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.txt")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("https://host/a.jpg"))
	require.NoError(t, a.Add("https://host/b.jpg"))
	require.NoError(t, a.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.Contains("https://host/a.jpg"))
	assert.True(t, reopened.Contains("https://host/b.jpg"))
	assert.False(t, reopened.Contains("https://host/c.jpg"))
	assert.Equal(t, 2, reopened.Len())
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "archive.txt")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Add("id"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMemoryOnlyArchive(t *testing.T) {
	a, err := Open("")
	require.NoError(t, err)

	require.NoError(t, a.Add("https://host/a.jpg"))
	assert.True(t, a.Contains("https://host/a.jpg"))
	assert.NoError(t, a.Close())
}

func TestAddRejectsEmptyIdentifier(t *testing.T) {
	a, err := Open("")
	require.NoError(t, err)

	assert.Error(t, a.Add("   "))
}
