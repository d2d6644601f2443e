// Package store is the remote collection store: a document database on
// Badger with collection paths, dotted field-path updates, field sentinels,
// equality/ordered queries and live snapshot listeners.
//
// Every committed write notifies the listeners attached to the written
// collection; each listener then re-runs its query and receives the full
// ordered membership.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/flashcardexchange/flashcards/internal/id"
	"github.com/flashcardexchange/flashcards/internal/logger"
)

// Options configures a Store.
type Options struct {
	Logger   *slog.Logger
	Path     string
	InMemory bool
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	clock  *clock
	hub    *hub

	// writeMu serializes commits so timestamps follow commit order and
	// listeners observe writes in the order they happened.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// New opens the store at opts.Path, or an in-memory store when opts.InMemory is set.
func New(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Path)
		bopts.SyncWrites = true
		bopts.CompactL0OnClose = true
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	log := logger.OrDiscard(opts.Logger)
	s := &Store{
		db:     db,
		logger: log,
		clock:  newClock(),
	}
	s.hub = newHub(s, log)

	log.Info("document store opened", "path", opts.Path, "in_memory", opts.InMemory)
	return s, nil
}

// Close detaches every listener and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.hub.closeAll()
		s.logger.Info("closing document store")
		err = s.db.Close()
	})
	return err
}

// SetOption modifies Set.
type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge makes Set deep-merge into the existing document instead of replacing it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// Add creates a document with a server-assigned id in collection.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	docID, err := id.Generate(id.ForCollection(collection))
	if err != nil {
		return "", err
	}

	err = s.commit(collection, func(txn *badger.Txn) error {
		ts := s.clock.next()
		norm, err := normalizeMap(resolve(data, ts))
		if err != nil {
			return err
		}
		return putRecord(txn, docKey(collection, docID), &record{Data: norm, CreateTime: ts, UpdateTime: ts})
	})
	if err != nil {
		return "", err
	}

	writesTotal.WithLabelValues("add").Inc()
	return docID, nil
}

// Set writes the document at docPath, creating it if needed. Without Merge
// the previous content is replaced entirely.
func (s *Store) Set(ctx context.Context, docPath string, data map[string]any, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, docID, err := splitDocPath(docPath)
	if err != nil {
		return err
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	err = s.commit(collection, func(txn *badger.Txn) error {
		key := docKey(collection, docID)
		existing, err := getRecord(txn, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		ts := s.clock.next()
		rec := &record{CreateTime: ts}
		if existing != nil {
			rec.CreateTime = existing.CreateTime
		}
		rec.UpdateTime = ts

		if o.merge && existing != nil {
			rec.Data = existing.Data
			if rec.Data == nil {
				rec.Data = map[string]any{}
			}
			if err := mergeInto(rec.Data, data, ts); err != nil {
				return err
			}
		} else {
			if rec.Data, err = normalizeMap(resolve(data, ts)); err != nil {
				return err
			}
		}
		return putRecord(txn, key, rec)
	})
	if err != nil {
		return err
	}

	op := "set"
	if o.merge {
		op = "merge"
	}
	writesTotal.WithLabelValues(op).Inc()
	return nil
}

// Update applies dotted field-path updates to an existing document.
// Returns ErrNotFound if the document does not exist.
func (s *Store) Update(ctx context.Context, docPath string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, docID, err := splitDocPath(docPath)
	if err != nil {
		return err
	}

	err = s.commit(collection, func(txn *badger.Txn) error {
		key := docKey(collection, docID)
		rec, err := getRecord(txn, key)
		if err != nil {
			return err
		}
		if rec.Data == nil {
			rec.Data = map[string]any{}
		}
		ts := s.clock.next()
		if err := applyFieldUpdates(rec.Data, fields, ts); err != nil {
			return err
		}
		rec.UpdateTime = ts
		return putRecord(txn, key, rec)
	})
	if err != nil {
		return err
	}

	writesTotal.WithLabelValues("update").Inc()
	return nil
}

// Delete removes the document at docPath. Deleting a missing document is not
// an error. Subcollections are left alone.
func (s *Store) Delete(ctx context.Context, docPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, docID, err := splitDocPath(docPath)
	if err != nil {
		return err
	}

	err = s.commit(collection, func(txn *badger.Txn) error {
		return txn.Delete(docKey(collection, docID))
	})
	if err != nil {
		return err
	}

	writesTotal.WithLabelValues("delete").Inc()
	return nil
}

// DeleteCollection removes every document of collection in one transaction
// and returns how many were removed.
func (s *Store) DeleteCollection(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkCollection(collection); err != nil {
		return 0, err
	}

	var n int
	err := s.commit(collection, func(txn *badger.Txn) error {
		prefix := collectionPrefix(collection)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}

	writesTotal.WithLabelValues("delete_collection").Inc()
	return n, nil
}

// Get reads one document. Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, docPath string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	collection, docID, err := splitDocPath(docPath)
	if err != nil {
		return nil, err
	}

	var doc *Document
	err = s.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, docKey(collection, docID))
		if err != nil {
			return err
		}
		doc = rec.document(collection, docID)
		return nil
	})
	if err != nil {
		return nil, s.mapClosed(err)
	}
	return doc, nil
}

// Query runs q once and returns the matching documents in order.
func (s *Store) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := q.compile()
	if err != nil {
		return nil, err
	}
	return s.run(c)
}

func (s *Store) run(c *compiled) ([]*Document, error) {
	var docs []*Document
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := collectionPrefix(c.Collection)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			docID := string(item.Key()[len(prefix):])

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal %s/%s: %w", c.Collection, docID, err)
			}

			doc := rec.document(c.Collection, docID)
			if c.matches(doc) {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.mapClosed(err)
	}

	c.sort(docs)
	return docs, nil
}

// commit runs fn in a write transaction and, once committed, notifies the
// listeners of collection.
func (s *Store) commit(collection string, fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	err := s.db.Update(fn)
	s.writeMu.Unlock()
	if err != nil {
		return s.mapClosed(err)
	}
	s.hub.notify(collection)
	return nil
}

func (s *Store) mapClosed(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed.WithCause(err)
	}
	return err
}

func getRecord(txn *badger.Txn, key []byte) (*record, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var rec record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, key []byte, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return txn.Set(key, data)
}
