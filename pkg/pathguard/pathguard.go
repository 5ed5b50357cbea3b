// Package pathguard validates client-supplied record keys before they are
// turned into filesystem paths.
//
// A key is accepted only when it names exactly one plain entry inside the
// records directory. Anything that could climb out of that directory, name
// the directory itself, or smuggle a second path segment is rejected.
package pathguard

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned when a key is not a single plain path component.
var ErrInvalidKey = errors.New("invalid key")

// IsValidKey reports whether raw is exactly one normal path component.
func IsValidKey(raw string) bool {
	if raw == "" || raw == "." || raw == ".." {
		return false
	}
	if strings.ContainsAny(raw, "/\\\x00") {
		return false
	}
	if filepath.IsAbs(raw) || filepath.VolumeName(raw) != "" {
		return false
	}
	return fs.ValidPath(raw)
}

// Join returns root joined with key, or ErrInvalidKey when key is unsafe.
func Join(root, key string) (string, error) {
	if !IsValidKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(root, key), nil
}
