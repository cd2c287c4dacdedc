package store

import "fmt"

// Tx is an id-indexed working copy of a collection. Within Collection.Update
// its changes are persisted when the callback returns nil.
type Tx[T Entity] struct {
	c      *Collection[T]
	items  []T
	byID   map[string]int
	unique map[string]map[string]string // index name -> key -> id
	dirty  bool
}

func (c *Collection[T]) newTx(items []T) *Tx[T] {
	tx := &Tx[T]{c: c, items: items}
	tx.reindex()
	return tx
}

// reindex rebuilds positions and unique keys. On duplicates in stored data
// the first record in collection order wins.
func (tx *Tx[T]) reindex() {
	tx.byID = make(map[string]int, len(tx.items))
	tx.unique = make(map[string]map[string]string, len(tx.c.indexes))
	for _, idx := range tx.c.indexes {
		tx.unique[idx.name] = make(map[string]string)
	}
	for i, item := range tx.items {
		id := item.GetID()
		if _, seen := tx.byID[id]; !seen {
			tx.byID[id] = i
		}
		for _, idx := range tx.c.indexes {
			if k, ok := idx.key(item); ok {
				if _, taken := tx.unique[idx.name][k]; !taken {
					tx.unique[idx.name][k] = id
				}
			}
		}
	}
}

// Items returns a copy of the records in collection order.
func (tx *Tx[T]) Items() []T {
	out := make([]T, len(tx.items))
	copy(out, tx.items)
	return out
}

func (tx *Tx[T]) Len() int { return len(tx.items) }

func (tx *Tx[T]) FindByID(id string) (T, bool) {
	if i, ok := tx.byID[id]; ok {
		return tx.items[i], true
	}
	var zero T
	return zero, false
}

func (tx *Tx[T]) Find(pred func(T) bool) (T, bool) {
	for _, item := range tx.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (tx *Tx[T]) Lookup(index, key string) (T, bool) {
	keys, ok := tx.unique[index]
	if !ok {
		var zero T
		return zero, false
	}
	id, ok := keys[key]
	if !ok {
		var zero T
		return zero, false
	}
	return tx.FindByID(id)
}

// checkUnique verifies that item can hold its index keys. selfID is the id
// the item replaces, empty for a new record.
func (tx *Tx[T]) checkUnique(item T, selfID string) error {
	for _, idx := range tx.c.indexes {
		k, ok := idx.key(item)
		if !ok {
			continue
		}
		if owner, taken := tx.unique[idx.name][k]; taken && owner != selfID {
			return fmt.Errorf("%w: %s.%s already held by %s", ErrUniqueViolation, tx.c.key, idx.name, owner)
		}
	}
	return nil
}

// Insert adds a new record at the front or the end.
func (tx *Tx[T]) Insert(item T, front bool) error {
	id := item.GetID()
	if _, exists := tx.byID[id]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateID, tx.c.key, id)
	}
	if err := tx.checkUnique(item, ""); err != nil {
		return err
	}
	if front {
		tx.items = append([]T{item}, tx.items...)
	} else {
		tx.items = append(tx.items, item)
	}
	tx.reindex()
	tx.dirty = true
	return nil
}

// Upsert replaces the record with item's id in place, or appends item.
func (tx *Tx[T]) Upsert(item T) error {
	id := item.GetID()
	i, exists := tx.byID[id]
	if !exists {
		return tx.Insert(item, false)
	}
	if err := tx.checkUnique(item, id); err != nil {
		return err
	}
	tx.items[i] = item
	tx.reindex()
	tx.dirty = true
	return nil
}

// Modify applies fn to a copy of the record with the given id and stores the
// result. The record is left untouched when fn fails. fn must not change the id.
func (tx *Tx[T]) Modify(id string, fn func(item *T) error) (T, error) {
	var zero T
	i, ok := tx.byID[id]
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", tx.c.key, id, ErrNotFound)
	}
	updated := tx.items[i]
	if err := fn(&updated); err != nil {
		return zero, err
	}
	if updated.GetID() != id {
		return zero, fmt.Errorf("%s %q: record id cannot change", tx.c.key, id)
	}
	if err := tx.checkUnique(updated, id); err != nil {
		return zero, err
	}
	tx.items[i] = updated
	tx.reindex()
	tx.dirty = true
	return updated, nil
}

// ModifyAll applies fn to every record in collection order.
func (tx *Tx[T]) ModifyAll(fn func(item *T)) {
	for i := range tx.items {
		fn(&tx.items[i])
	}
	tx.reindex()
	tx.dirty = true
}
