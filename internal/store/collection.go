package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Entity is a stored document addressable by id.
type Entity interface {
	GetID() string
}

// KeyFunc derives a unique-index key from a record. ok=false leaves the
// record out of the index.
type KeyFunc[T Entity] func(item T) (key string, ok bool)

type uniqueIndex[T Entity] struct {
	name string
	key  KeyFunc[T]
}

// Option configures a Collection.
type Option[T Entity] func(c *Collection[T])

// WithUniqueIndex declares a store-level unique constraint on the collection.
func WithUniqueIndex[T Entity](name string, key KeyFunc[T]) Option[T] {
	return func(c *Collection[T]) {
		c.indexes = append(c.indexes, uniqueIndex[T]{name: name, key: key})
	}
}

// Collection is one ordered sequence of documents stored as a single JSON
// array under a stable key. Every mutation is a read-modify-write of the
// whole array, serialized by the collection mutex.
type Collection[T Entity] struct {
	kv      KV
	key     string
	log     *zap.SugaredLogger
	mu      sync.Mutex
	indexes []uniqueIndex[T]
}

func NewCollection[T Entity](kv KV, key string, log *zap.SugaredLogger, opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{kv: kv, key: key, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the persistence key of the collection.
func (c *Collection[T]) Key() string { return c.key }

// read decodes the stored array. Absent or corrupt documents decode to an
// empty collection; only transport errors are returned.
func (c *Collection[T]) read(ctx context.Context) ([]T, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}
	return c.decode(raw), nil
}

func (c *Collection[T]) decode(raw []byte) []T {
	if raw == nil {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warnw("Discarding corrupt collection", "key", c.key, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func (c *Collection[T]) encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	return raw, nil
}

// Load returns the whole collection. It never fails: unreadable state is
// logged and replaced with an empty collection.
func (c *Collection[T]) Load(ctx context.Context) []T {
	items, err := c.read(ctx)
	if err != nil {
		c.log.Warnw("Loading empty collection after read failure", "key", c.key, "error", err)
		return []T{}
	}
	return items
}

// Save replaces the whole collection.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	raw, err := c.encode(items)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.kv.Update(ctx, c.key, func([]byte) ([]byte, error) { return raw, nil }); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return nil
}

// Present reports whether the collection has ever been saved.
func (c *Collection[T]) Present(ctx context.Context) (bool, error) {
	_, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", c.key, err)
	}
	return true, nil
}

// View runs fn against a read-only snapshot of the collection.
func (c *Collection[T]) View(ctx context.Context, fn func(tx *Tx[T]) error) error {
	return fn(c.newTx(c.Load(ctx)))
}

// Update runs fn inside a serialized read-modify-write. The mutex orders
// writers in this process and KV.Update makes the round trip atomic against
// other processes, so fn may run again on a fresher snapshot and must only
// touch the Tx and its own locals. The collection is written back only when
// fn returns nil and changed something.
func (c *Collection[T]) Update(ctx context.Context, fn func(tx *Tx[T]) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fnErr error
	err := c.kv.Update(ctx, c.key, func(current []byte) ([]byte, error) {
		tx := c.newTx(c.decode(current))
		if fnErr = fn(tx); fnErr != nil {
			return nil, fnErr
		}
		if !tx.dirty {
			return nil, nil
		}
		return c.encode(tx.items)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.key, err)
	}
	return nil
}

// FindByID returns the record with the given id or ErrNotFound.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var found T
	err := c.View(ctx, func(tx *Tx[T]) error {
		item, ok := tx.FindByID(id)
		if !ok {
			return fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
		}
		found = item
		return nil
	})
	return found, err
}

// Find returns the first record, in collection order, matching pred.
func (c *Collection[T]) Find(ctx context.Context, pred func(T) bool) (T, bool) {
	var found T
	var ok bool
	_ = c.View(ctx, func(tx *Tx[T]) error {
		found, ok = tx.Find(pred)
		return nil
	})
	return found, ok
}

// Lookup returns the record holding key in the named unique index.
func (c *Collection[T]) Lookup(ctx context.Context, index, key string) (T, bool) {
	var found T
	var ok bool
	_ = c.View(ctx, func(tx *Tx[T]) error {
		found, ok = tx.Lookup(index, key)
		return nil
	})
	return found, ok
}

// Insert adds item at the front (front=true) or the end of the collection.
func (c *Collection[T]) Insert(ctx context.Context, item T, front bool) error {
	return c.Update(ctx, func(tx *Tx[T]) error {
		return tx.Insert(item, front)
	})
}

// Upsert replaces the record with item's id in place, or appends item.
func (c *Collection[T]) Upsert(ctx context.Context, item T) error {
	return c.Update(ctx, func(tx *Tx[T]) error {
		return tx.Upsert(item)
	})
}
