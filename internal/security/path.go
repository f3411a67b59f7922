package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CleanPath validates a configured filesystem location and returns it as a
// clean absolute path. Paths with ".." elements are rejected outright.
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}

	for _, elem := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if elem == ".." {
			return "", fmt.Errorf("path contains directory traversal: %s", path)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	return abs, nil
}

// WithinDir reports whether path is dir itself or lies below it. Both
// arguments must already be clean absolute paths.
func WithinDir(path, dir string) bool {
	if path == dir {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
