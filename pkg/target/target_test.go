package target

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCreatesTree(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Add("example.com"))

	assert.True(t, w.Exists("example.com"))
	for _, category := range categoryDirs {
		assert.DirExists(t, filepath.Join(w.Root(), "example.com", category))
	}

	meta, err := w.Metadata("example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", meta.Domain)
	assert.False(t, meta.Added.IsZero())
	assert.NotNil(t, meta.Scope)
}

func TestAddDuplicate(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Add("example.com"))
	assert.ErrorIs(t, w.Add("example.com"), ErrTargetExists)
}

func TestAddEmptyDomain(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, w.Add(""))
}

func TestList(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Add("example.com"))
	require.NoError(t, w.Add("example.org"))

	targets, err := w.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"example.com", "example.org"}, targets)
}

func TestMetadataNotFound(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	_, err = w.Metadata("missing.com")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestArtifactDir(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Add("example.com"))

	dir, err := w.ArtifactDir("example.com", "recon")
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = w.ArtifactDir("missing.com", "recon")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}
