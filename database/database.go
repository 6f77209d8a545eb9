// Package database stores the replica's key/value pairs in leveldb.
package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/hashtree"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = lerrors.ErrNotFound

// Config for the on-disk store.
type Config struct {
	// Cache is the block cache size in MiB.
	Cache   int `mapstructure:"cache"`
	Handles int `mapstructure:"handles"`
}

func DefaultConfig() Config {
	return Config{
		Cache:   16,
		Handles: 16,
	}
}

// LDBDatabase is a wrapper for leveldb database with concurrent access.
type LDBDatabase struct {
	path   string
	db     *leveldb.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path. A corrupted database is
// recovered before use.
func Open(path string, cfg Config, logger *zap.Logger) (*LDBDatabase, error) {
	cfg.Cache = max(cfg.Cache, 16)
	cfg.Handles = max(cfg.Handles, 16)
	logger.Info("allocated cache and file handles",
		zap.String("path", path),
		zap.Int("cache_size", cfg.Cache),
		zap.Int("num_handles", cfg.Handles),
	)
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: cfg.Handles,
		BlockCacheCapacity:     cfg.Cache / 2 * opt.MiB,
		WriteBuffer:            cfg.Cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	var corrupted *lerrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		logger.Warn("recovering corrupted database", zap.String("path", path), zap.Error(err))
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LDBDatabase{path: path, db: db, logger: logger}, nil
}

// OpenInMemory returns a database backed by memory storage.
func OpenInMemory() *LDBDatabase {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic("can't open in-memory leveldb: " + err.Error())
	}
	return &LDBDatabase{db: db, logger: zap.NewNop()}
}

// Path returns the path to the database directory.
func (db *LDBDatabase) Path() string {
	return db.path
}

func (db *LDBDatabase) Put(key, value []byte) error {
	if err := db.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("put value: %w", err)
	}
	return nil
}

func (db *LDBDatabase) Get(key []byte) ([]byte, error) {
	data, err := db.db.Get(key, nil)
	if err != nil {
		return nil, fmt.Errorf("get value: %w", err)
	}
	return data, nil
}

func (db *LDBDatabase) Has(key []byte) (bool, error) {
	has, err := db.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("check value: %w", err)
	}
	return has, nil
}

func (db *LDBDatabase) Delete(key []byte) error {
	if err := db.db.Delete(key, nil); err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

// PutAll writes every pair in a single batch.
func (db *LDBDatabase) PutAll(pairs map[string][]byte) error {
	batch := new(leveldb.Batch)
	for k, v := range pairs {
		batch.Put([]byte(k), v)
	}
	if err := db.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write batch of %d: %w", len(pairs), err)
	}
	return nil
}

// Iterate calls fn for every pair in ascending key order. Slices passed to fn
// are copies and may be retained.
func (db *LDBDatabase) Iterate(ctx context.Context, fn func(key, value []byte) error) error {
	it := db.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(bytes.Clone(it.Key()), bytes.Clone(it.Value())); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterate: %w", err)
	}
	return nil
}

// Close closes database, flushing writes and denying all new write requests.
func (db *LDBDatabase) Close() error {
	if err := db.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", db.path, err)
	}
	db.logger.Info("database closed", zap.String("path", db.path))
	return nil
}

// LoadTree inserts every stored pair into tree.
func LoadTree(ctx context.Context, db *LDBDatabase, tree *hashtree.Tree[string, []byte]) (int, error) {
	n := 0
	err := db.Iterate(ctx, func(key, value []byte) error {
		if err := tree.Insert(string(key), value); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
