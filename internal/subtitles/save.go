package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autocap/internal/fileutil"
)

// Save writes file to <dir>/<key>.srt atomically and returns the path.
func Save(dir, key string, file File) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("save subtitles: invalid key %q", key)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save subtitles: ensure dir: %w", err)
	}
	path := filepath.Join(dir, key+".srt")
	if err := fileutil.WriteFileAtomic(path, Encode(file), 0o644); err != nil {
		return "", fmt.Errorf("save subtitles: %w", err)
	}
	return path, nil
}

// Load reads and parses an SRT file from disk.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read srt: %w", err)
	}
	return Parse(data)
}
