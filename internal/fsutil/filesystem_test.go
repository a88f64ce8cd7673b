package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_GlobSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run_b.json", "run_a.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	fs := OSFileSystem{}
	matches, err := fs.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "run_a.json"),
		filepath.Join(dir, "run_b.json"),
	}, matches)
}

func TestReplaceFile_OS(t *testing.T) {
	dir := t.TempDir()
	fs := OSFileSystem{}
	path := filepath.Join(dir, "plots", "current.png")

	require.NoError(t, ReplaceFile(fs, path, []byte("first")))
	require.NoError(t, ReplaceFile(fs, path, []byte("png")))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/runs/a.json", []byte("hello"), 0644))

	data, err := mfs.ReadFile("/runs/a.json")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	f, err := mfs.Open("/runs/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	require.NoError(t, f.Close())
}

func TestMemoryFileSystem_ReplaceFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, ReplaceFile(mfs, "/out/current.png", []byte("abc")))
	require.NoError(t, ReplaceFile(mfs, "/out/current.png", []byte("abcd")))

	data, err := mfs.ReadFile("/out/current.png")
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))
	assert.Equal(t, []string{"/out/current.png"}, mfs.Files())
}

func TestMemoryFileSystem_Rename(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/a/x.json", []byte("x"), 0600))
	require.NoError(t, mfs.Rename("/a/x.json", "/b/y.json"))

	assert.False(t, mfs.Exists("/a/x.json"))
	info, err := mfs.Stat("/b/y.json")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode())

	err = mfs.Rename("/a/x.json", "/c.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_FileDirConflicts(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out", 0755))
	assert.ErrorIs(t, mfs.WriteFile("/out", []byte("x"), 0644), os.ErrExist)

	require.NoError(t, mfs.WriteFile("/f", []byte("x"), 0644))
	assert.ErrorIs(t, mfs.MkdirAll("/f", 0755), os.ErrExist)
}

func TestMemoryFileSystem_ReadReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/a", []byte("abc"), 0644))
	data, err := mfs.ReadFile("/a")
	require.NoError(t, err)
	data[0] = 'z'

	again, err := mfs.ReadFile("/a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryFileSystem_DirectoriesFromFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/data/batch1/run.json", []byte("{}"), 0644))

	info, err := mfs.Stat("/data/batch1")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, mfs.Exists("/data"))
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/d/b.json", "/d/a.json", "/d/c.yaml", "/d/sub/x.json"} {
		require.NoError(t, mfs.WriteFile(name, []byte("{}"), 0644))
	}

	matches, err := mfs.Glob("/d/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"/d/a.json", "/d/b.json"}, matches)

	_, err = mfs.Glob("/d/[")
	assert.Error(t, err)
}

func TestMemoryFileSystem_StatMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_, err := mfs.Stat("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = mfs.Open("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
