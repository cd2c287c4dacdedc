package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrKeyNotFound is returned by KV.Get when the key holds no document.
	ErrKeyNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by KV.Update when other writers changed the key
	// on every attempt.
	ErrConflict = errors.New("kv: key changed concurrently")
)

// UpdateFunc maps the current document (nil when absent) to the one to store.
// Returning a nil document leaves the key untouched. It may run more than once.
type UpdateFunc func(current []byte) ([]byte, error)

// KV is the persistence collaborator: an opaque key to JSON document map.
// Set must be atomic for a single key. Update must be atomic against every
// other writer of the key, including other processes sharing the backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, keys ...string) error
}

// MaxUpdateAttempts bounds the optimistic retries of RetryOnConflict.
const MaxUpdateAttempts = 20

// RetryOnConflict drives an optimistic read-modify-write. attempt returns
// committed=false when another writer got in first; it is then retried with
// a short growing pause until MaxUpdateAttempts, after which ErrConflict is
// returned. Backends without native locking build Update on it.
func RetryOnConflict(ctx context.Context, key string, attempt func() (committed bool, err error)) error {
	for i := 0; i < MaxUpdateAttempts; i++ {
		committed, err := attempt()
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrConflict, key, MaxUpdateAttempts)
}

// MemoryKV is a process-local KV. It is the default backend and the one tests use.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

// Update holds the map lock across fn, so it is atomic for this process.
func (m *MemoryKV) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current []byte
	if v, ok := m.data[key]; ok {
		current = make([]byte, len(v))
		copy(current, v)
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	v := make([]byte, len(next))
	copy(v, next)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}
