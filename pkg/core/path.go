package core

import (
	"path/filepath"
	"strings"
)

// IsRemote reports whether path names an object-store location such as
// s3://bucket/prefix.
func IsRemote(path string) bool {
	return strings.Contains(path, "://")
}

// JoinPath joins path elements onto base. Remote bases are joined with
// forward slashes, local ones with filepath.Join.
func JoinPath(base string, elem ...string) string {
	if IsRemote(base) {
		return strings.TrimRight(base, "/") + "/" + strings.Join(elem, "/")
	}
	return filepath.Join(append([]string{base}, elem...)...)
}
