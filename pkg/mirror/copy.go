package mirror

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/errors"
)

// copyFile copies the contents, mode, and modification time of the regular
// file at `src` to `dst`. `dst` must not exist.
// It returns the number of bytes written, even if the copy fails partway.
func copyFile(fs afero.Fs, src, dst string) (int64, error) {
	srcFile, err := fs.Open(src)
	if err != nil {
		return 0, errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return 0, errors.WithContext(err, "stat")
	}

	if !fileInfo.Mode().IsRegular() {
		return 0, fmt.Errorf("%q is not a regular file (mode %s)", src, fileInfo.Mode())
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileInfo.Mode().Perm())
	if err != nil {
		return 0, errors.WithContext(err, "open destination")
	}

	n, err := io.Copy(dstFile, srcFile)
	if err != nil {
		dstFile.Close()
		return n, errors.WithContext(err, "copy")
	}

	if err := dstFile.Close(); err != nil {
		return n, errors.WithContext(err, "close destination")
	}

	// The mode passed to OpenFile is subject to the umask.
	if err := fs.Chmod(dst, fileInfo.Mode()); err != nil {
		return n, errors.WithContext(err, "set file mode")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return n, errors.WithContext(err, "set file modtime")
	}
	return n, nil
}

// copyTree recursively copies the directory at `src` to `dst`, which must
// not exist. Symlinks within the tree are followed, so the copy contains
// regular files and directories only.
func copyTree(fs afero.Fs, src, dst string) (int64, error) {
	srcInfo, err := fs.Stat(src)
	if err != nil {
		return 0, errors.WithContext(err, "stat")
	}

	// Make the directory writable by us until all the children are in place,
	// in case the source directory is read-only.
	if err := fs.Mkdir(dst, srcInfo.Mode().Perm()|0700); err != nil {
		return 0, errors.WithContext(err, "make directory")
	}

	children, err := afero.ReadDir(fs, src)
	if err != nil {
		return 0, errors.WithContext(err, fmt.Sprintf("read directory %q", src))
	}

	var total int64
	for _, child := range children {
		srcChild := filepath.Join(src, child.Name())
		dstChild := filepath.Join(dst, child.Name())

		if child.Mode()&os.ModeSymlink != 0 {
			child, err = fs.Stat(srcChild)
			if err != nil {
				return total, errors.WithContext(err, fmt.Sprintf("follow symlink %q", srcChild))
			}
		}

		var n int64
		if child.IsDir() {
			n, err = copyTree(fs, srcChild, dstChild)
		} else {
			n, err = copyFile(fs, srcChild, dstChild)
			if err != nil {
				err = errors.WithContext(err, fmt.Sprintf("copy %q", srcChild))
			}
		}
		total += n
		if err != nil {
			return total, err
		}
	}

	// Pass the full mode rather than just the permission bits. Some Fs
	// implementations replace the entire mode on Chmod, including ModeDir.
	if err := fs.Chmod(dst, srcInfo.Mode()); err != nil {
		return total, errors.WithContext(err, "set directory mode")
	}

	// Creating the children updated the directory's modtime, so restore it
	// last.
	if err := fs.Chtimes(dst, time.Now(), srcInfo.ModTime()); err != nil {
		return total, errors.WithContext(err, "set directory modtime")
	}
	return total, nil
}

// exists returns whether anything is at `path`. Symlinks aren't followed
// when the Fs supports it, so a dangling symlink counts as existing.
func exists(fs afero.Fs, path string) (bool, error) {
	var err error
	if lstater, ok := fs.(afero.Lstater); ok {
		_, _, err = lstater.LstatIfPossible(path)
	} else {
		_, err = fs.Stat(path)
	}

	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}
