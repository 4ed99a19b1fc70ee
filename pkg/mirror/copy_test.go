package mirror

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	srcPath := "/src/hello/world"
	srcContents := []byte("srcContents")
	modTime := time.Date(2024, 2, 5, 8, 30, 0, 0, time.UTC)

	dstPath := "/dst/world"

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dst", 0755))
	assert.NoError(t, afero.WriteFile(fs, srcPath, srcContents, 0644))
	assert.NoError(t, fs.Chtimes(srcPath, modTime, modTime))

	n, err := copyFile(fs, srcPath, dstPath)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(srcContents)), n)

	dstContents, err := afero.ReadFile(fs, dstPath)
	assert.NoError(t, err)
	assert.Equal(t, srcContents, dstContents)

	dstFileInfo, err := fs.Stat(dstPath)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), dstFileInfo.Mode())
	assert.True(t, modTime.Equal(dstFileInfo.ModTime()))
}

func TestCopyExecutableFile(t *testing.T) {
	srcPath := "/src/hello/world"
	srcContents := []byte("srcContents")

	dstPath := "/dst/world"

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dst", 0755))
	assert.NoError(t, afero.WriteFile(fs, srcPath, srcContents, 0755))

	_, err := copyFile(fs, srcPath, dstPath)
	assert.NoError(t, err)

	dstContents, err := afero.ReadFile(fs, dstPath)
	assert.NoError(t, err)
	assert.Equal(t, srcContents, dstContents)

	dstFileInfo, err := fs.Stat(dstPath)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), dstFileInfo.Mode())
}

func TestCopyFileMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := copyFile(fs, "/missing", "/dst")
	assert.Error(t, err)

	dstExists, err := afero.Exists(fs, "/dst")
	assert.NoError(t, err)
	assert.False(t, dstExists)
}

func TestCopyTreeOs(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")

	modTime := time.Date(2024, 2, 5, 8, 30, 0, 0, time.UTC)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "file"), []byte("nested"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "outside"), []byte("linked"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "outside"), filepath.Join(src, "link")))
	require.NoError(t, os.Chtimes(filepath.Join(src, "sub"), modTime, modTime))

	fs := afero.NewOsFs()
	n, err := copyTree(fs, src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len("nested")+len("linked")), n)

	contents, err := os.ReadFile(filepath.Join(dst, "sub", "file"))
	assert.NoError(t, err)
	assert.Equal(t, "nested", string(contents))

	fi, err := os.Stat(filepath.Join(dst, "sub", "file"))
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	// Symlinks are copied as the files they point to.
	linkInfo, err := os.Lstat(filepath.Join(dst, "link"))
	assert.NoError(t, err)
	assert.True(t, linkInfo.Mode().IsRegular())
	contents, err = os.ReadFile(filepath.Join(dst, "link"))
	assert.NoError(t, err)
	assert.Equal(t, "linked", string(contents))

	subInfo, err := os.Stat(filepath.Join(dst, "sub"))
	assert.NoError(t, err)
	assert.True(t, modTime.Equal(subInfo.ModTime()))
}

func TestCopyTreeBrokenSymlink(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(src, "broken")))

	_, err := copyTree(afero.NewOsFs(), src, filepath.Join(root, "dst"))
	assert.Error(t, err)
}

func TestExistsDanglingSymlink(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(root, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), link))

	fs := afero.NewOsFs()
	linkExists, err := exists(fs, link)
	assert.NoError(t, err)
	assert.True(t, linkExists)

	missingExists, err := exists(fs, filepath.Join(root, "missing"))
	assert.NoError(t, err)
	assert.False(t, missingExists)
}
