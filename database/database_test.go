package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-antientropy/hashtree"
	"github.com/spacemeshos/go-antientropy/log/logtest"
)

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := Open(path, DefaultConfig(), logtest.New(t))
	require.NoError(t, err)
	require.Equal(t, path, db.Path())
	key := []byte("some key")
	require.NoError(t, db.Put(key, []byte("wonderful")))
	require.NoError(t, db.Close())

	db, err = Open(path, Config{}, logtest.New(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	value, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("wonderful"), value)
}

func TestDelete(t *testing.T) {
	db := OpenInMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	key := []byte("some key")
	require.NoError(t, db.Put(key, []byte("wonderful")))
	has, err := db.Has(key)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, db.Delete(key))
	_, err = db.Get(key)
	require.ErrorIs(t, err, ErrNotFound)
	has, err = db.Has(key)
	require.NoError(t, err)
	require.False(t, has)
}

func TestIterateOrder(t *testing.T) {
	db := OpenInMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	pairs := map[string][]byte{}
	for _, i := range []int{5, 1, 9, 3, 7} {
		pairs[fmt.Sprintf("key-%d", i)] = []byte(fmt.Sprintf("value %d", i))
	}
	require.NoError(t, db.PutAll(pairs))

	var keys []string
	require.NoError(t, db.Iterate(context.Background(), func(key, value []byte) error {
		require.Equal(t, pairs[string(key)], value)
		keys = append(keys, string(key))
		return nil
	}))
	require.Equal(t, []string{"key-1", "key-3", "key-5", "key-7", "key-9"}, keys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, db.Iterate(ctx, func(_, _ []byte) error { return nil }), context.Canceled)
}

func TestLoadTree(t *testing.T) {
	db := OpenInMemory()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	expected := hashtree.New[string, []byte]()
	for i := range 20 {
		key := fmt.Sprintf("%03d", 19-i)
		require.NoError(t, db.Put([]byte(key), []byte{byte(i)}))
		require.NoError(t, expected.Insert(key, []byte{byte(i)}))
	}

	tree := hashtree.New[string, []byte]()
	n, err := LoadTree(context.Background(), db, tree)
	require.NoError(t, err)
	require.Equal(t, 20, n)
	require.Equal(t, expected.RootHash(), tree.RootHash())
	require.NoError(t, tree.Verify())

	_, err = LoadTree(context.Background(), db, tree)
	require.ErrorIs(t, err, hashtree.ErrKeyExists)
}
