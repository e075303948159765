// Package fileutil holds small file helpers shared by the cache, subtitle and
// download code.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file in the destination directory and
// renames it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	_, err := writeAtomic(path, perm, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// WriteReaderAtomic streams r into path through a temp file. When expectedSize
// is positive the copy must match it exactly or the temp file is discarded.
func WriteReaderAtomic(path string, r io.Reader, expectedSize int64) (int64, error) {
	written, err := writeAtomic(path, 0o644, func(w io.Writer) (int64, error) {
		n, err := io.Copy(w, r)
		if err != nil {
			return n, err
		}
		if expectedSize > 0 && n != expectedSize {
			return n, fmt.Errorf("copy size mismatch: expected %d bytes, copied %d bytes", expectedSize, n)
		}
		return n, nil
	})
	return written, err
}

func writeAtomic(path string, perm os.FileMode, fill func(io.Writer) (int64, error)) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	written, err := fill(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return written, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return written, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return written, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return written, fmt.Errorf("rename temp file: %w", err)
	}
	return written, nil
}

// Exists reports whether path exists and is a non-empty regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
