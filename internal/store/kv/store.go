// Package kv implements the item store on Badger with key-prefix indexes.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/linkstash/linkstash/internal/store"
)

// maxTxnRetries bounds how often a conflicting read-write transaction is replayed.
const maxTxnRetries = 5

// Store wraps a Badger database instance.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	emitter store.EventEmitter
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the Badger store in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	return open(opts, logger, dir)
}

// OpenInMemory opens a Badger store that lives only in memory.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger, ":memory:")
}

func open(opts badger.Options, logger *slog.Logger, label string) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("badger store opened", "path", label)

	return &Store{
		db:      db,
		logger:  logger,
		emitter: store.NewNoopEmitter(),
	}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing badger store")
	return s.db.Close()
}

// SetEmitter sets the emitter used to announce writes.
func (s *Store) SetEmitter(emitter store.EventEmitter) {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	s.emitter = emitter
}

// update runs fn in a read-write transaction, replaying it on write conflicts.
// A replay re-reads everything, so uniqueness checks see the winner's writes.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := range maxTxnRetries {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("badger transaction conflict", "attempt", attempt+1)
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

// view runs fn in a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// getJSON reads key into dest. Returns badger.ErrKeyNotFound when absent.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON writes value under key.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// deleteKeys removes keys, ignoring ones already gone.
func deleteKeys(txn *badger.Txn, keys [][]byte) error {
	for _, k := range keys {
		if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

// scanSuffixes returns the key remainder after prefix for every key under prefix.
func scanSuffixes(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		out = append(out, string(it.Item().Key()[len(prefix):]))
	}
	return out
}
