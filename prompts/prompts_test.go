package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Embedded(t *testing.T) {
	SetPath("")
	t.Cleanup(func() { SetPath("") })

	got, err := Default()
	require.NoError(t, err)
	assert.Contains(t, got, "memory_append")

	again, err := Default()
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDefault_FileOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), "prompt.md")
	require.NoError(t, os.WriteFile(file, []byte("You are Ops.\n"), 0o600))

	SetPath(file)
	t.Cleanup(func() { SetPath("") })

	got, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "You are Ops.", got)

	// Cached value survives the file disappearing.
	require.NoError(t, os.Remove(file))
	got, err = Default()
	require.NoError(t, err)
	assert.Equal(t, "You are Ops.", got)
}

func TestDefault_MissingFileWithoutCache(t *testing.T) {
	SetPath(filepath.Join(t.TempDir(), "nope.md"))
	t.Cleanup(func() { SetPath("") })

	_, err := Default()
	assert.Error(t, err)
}
