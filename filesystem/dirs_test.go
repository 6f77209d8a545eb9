package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCanonicalPath(t *testing.T) {
	t.Setenv("HOME", "/home/replica")
	t.Setenv("ANTIENTROPY_TEST_DIR", "data")
	for _, tc := range []struct {
		path     string
		expected string
	}{
		{"", "."},
		{".", "."},
		{"~/a", "/home/replica/a"},
		{"~/a/../b", "/home/replica/b"},
		{"/tmp/$ANTIENTROPY_TEST_DIR/x", "/tmp/data/x"},
		{"rel/./dir/", "rel/dir"},
	} {
		require.Equal(t, tc.expected, GetCanonicalPath(tc.path), tc.path)
	}
}

func TestGetUserHomeDirectory(t *testing.T) {
	t.Setenv("HOME", "/home/replica")
	require.Equal(t, "/home/replica", GetUserHomeDirectory())
}

func TestExistOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, ExistOrCreate(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.NoError(t, ExistOrCreate(path))
}
