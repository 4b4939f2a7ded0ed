package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledPages(t *testing.T) {
	pages, err := Load("")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "Introduction to Physical AI", pages[0].Title)
	assert.Equal(t, "Sensors and Perception", pages[1].Title)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# Beta\n\nbody"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("no heading"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	pages, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "a", pages[0].Title)
	assert.Equal(t, "Beta", pages[1].Title)
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLinesArePlainText(t *testing.T) {
	pages, err := Load("")
	require.NoError(t, err)

	lines, err := Lines(pages[0], 60)
	require.NoError(t, err)
	text := strings.Join(lines, "\n")
	flat := strings.Join(strings.Fields(text), " ")
	assert.Contains(t, flat, "Robots perceive the world")
	assert.NotContains(t, text, "\x1b[", "notty output has no escape codes")
}

func TestLoadSinglePageDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.md"), []byte("# Intro\n\ntext"), 0644))

	pages, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Intro", pages[0].Title)
	assert.Equal(t, "intro.md", pages[0].Name)
}

func TestResolveDir(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, "", ResolveDir(root, ""))
	assert.Equal(t, filepath.Join(root, "docs"), ResolveDir(root, "docs"))

	abs := filepath.Join(root, "elsewhere")
	assert.Equal(t, abs, ResolveDir("/unused", abs))
}

func TestLoadResolvedRelativeDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "01.md"), []byte("# One"), 0644))

	pages, err := Load(ResolveDir(root, "docs"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "One", pages[0].Title)
}
