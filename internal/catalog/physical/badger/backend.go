// Package badger provides a BadgerDB-backed content catalog.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

const (
	KeyPath       = "path"
	KeySyncWrites = "sync_writes"
	KeyInMemory   = "in_memory"
)

func init() {
	physical.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:       "~/.streamgate/catalog",
		KeySyncWrites: "false",
		KeyInMemory:   "false",
	}
}

// NewFactory creates a new BadgerDB backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	inMemory, err := storage.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path := storage.GetString(config, KeyPath, "")
		if path == "" {
			return nil, storage.NewConfigError("badger", KeyPath, "cannot be empty")
		}
		path = storage.ExpandPath(path)
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
		}
		syncWrites, err := storage.GetBool(config, KeySyncWrites, false)
		if err != nil {
			return nil, storage.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
		}
		opts = badger.DefaultOptions(path)
		opts.SyncWrites = syncWrites
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	slog.Info("badger catalog initialized", "in_memory", inMemory)
	return NewWithDB(db), nil
}

// Backend stores items as JSON under type-prefixed keys. Finds scan one
// type's prefix and evaluate the predicate in-process.
type Backend struct {
	db     *badger.DB
	closed atomic.Bool
}

// NewWithDB wraps an existing BadgerDB handle.
func NewWithDB(db *badger.DB) *Backend {
	return &Backend{db: db}
}

func itemKey(target visibility.TargetType, id int64) []byte {
	return []byte("item/" + string(target) + "/" + strconv.FormatInt(id, 10))
}

func typePrefix(target visibility.TargetType) []byte {
	return []byte("item/" + string(target) + "/")
}

func (b *Backend) Put(_ context.Context, item visibility.Item) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("badger put: encode: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(itemKey(item.Target, item.TargetID), data)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

func (b *Backend) PutBatch(_ context.Context, items []visibility.Item) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("badger put batch: encode: %w", err)
		}
		if err := wb.Set(itemKey(item.Target, item.TargetID), data); err != nil {
			return fmt.Errorf("badger put batch: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger put batch: flush: %w", err)
	}
	return nil
}

func (b *Backend) Get(_ context.Context, target visibility.TargetType, id int64) (visibility.Item, error) {
	if b.closed.Load() {
		return visibility.Item{}, physical.ErrClosed
	}
	var item visibility.Item
	err := b.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(itemKey(target, id))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return visibility.Item{}, physical.ErrNotFound
	}
	if err != nil {
		return visibility.Item{}, fmt.Errorf("badger get: %w", err)
	}
	return item, nil
}

func (b *Backend) Delete(_ context.Context, target visibility.TargetType, id int64) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(itemKey(target, id))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (b *Backend) Find(ctx context.Context, target visibility.TargetType, pred visibility.Predicate) ([]visibility.Item, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var matches []visibility.Item
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := typePrefix(target)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item visibility.Item
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			})
			if err != nil {
				return fmt.Errorf("decode item %s: %w", it.Item().Key(), err)
			}
			if pred.Eval(item) {
				matches = append(matches, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger find: %w", err)
	}
	return matches, nil
}

func (b *Backend) Count(ctx context.Context, target visibility.TargetType) (int64, error) {
	if b.closed.Load() {
		return 0, physical.ErrClosed
	}
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := typePrefix(target)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger count: %w", err)
	}
	return n, nil
}

func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger stats: %w", err)
	}
	return &physical.Stats{Items: n, BackendType: "badger"}, nil
}

func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
