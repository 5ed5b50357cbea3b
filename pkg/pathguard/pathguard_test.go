package pathguard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"plain record name", "20240101-120000-GET-|a.yaml", true},
		{"dotted name", "a.b.c", true},
		{"pipes and spaces", "x | y", true},
		{"empty", "", false},
		{"current dir", ".", false},
		{"parent dir", "..", false},
		{"parent prefix", "../etc/passwd", false},
		{"nested", "a/b", false},
		{"trailing slash", "a/", false},
		{"absolute", "/etc/passwd", false},
		{"backslash", `a\b`, false},
		{"backslash parent", `..\secret`, false},
		{"nul byte", "a\x00b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsValidKey(tt.key))
		})
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	t.Run("joins a valid key", func(t *testing.T) {
		t.Parallel()
		got, err := Join(root, "record.yaml")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "record.yaml"), got)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		t.Parallel()
		_, err := Join(root, "../record.yaml")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}
