// Package badger implements a snapshot slot on BadgerDB.
//
// The whole snapshot is one value under a fixed key. Badger keeps large
// values in its value log, so rewriting the key on every save is cheap and
// the previous value stays readable until the write commits.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittodrive/pkg/store/slot"
)

// snapshotKey holds the encoded drive snapshot.
var snapshotKey = []byte("drive/snapshot")

// Config configures a BadgerDB slot.
type Config struct {
	// DBPath is the directory where BadgerDB keeps its files.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs Badger without touching disk. Used by tests.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is Badger's block cache size in MB (default: 16).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is Badger's index cache size in MB (default: 8).
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerSlot stores the snapshot under a single Badger key.
//
// Thread Safety:
// Badger transactions are safe for concurrent use.
type BadgerSlot struct {
	db *badgerdb.DB
}

// New opens (or creates) the Badger database at cfg.DBPath.
func New(ctx context.Context, cfg Config) (*BadgerSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badgerdb.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	}

	// One key, rewritten on every save: small caches are enough.
	opts = opts.WithLoggingLevel(badgerdb.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithNumVersionsToKeep(1)

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &BadgerSlot{db: db}, nil
}

// Write replaces the stored snapshot.
func (s *BadgerSlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(snapshotKey, data)
	})
}

// Read returns the stored snapshot, or slot.ErrSlotEmpty.
func (s *BadgerSlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, slot.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// Close closes the database.
func (s *BadgerSlot) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
