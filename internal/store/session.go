package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

// SessionSlot persists the singleton declared identity.
type SessionSlot struct {
	kv  KV
	key string
	log *zap.SugaredLogger
	mu  sync.Mutex
}

func NewSessionSlot(kv KV, key string, log *zap.SugaredLogger) *SessionSlot {
	return &SessionSlot{kv: kv, key: key, log: log}
}

// Get returns the stored identity, or nil when nobody has signed in.
// A corrupt document reads as signed out.
func (s *SessionSlot) Get(ctx context.Context) (*models.SessionIdentity, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var identity models.SessionIdentity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.Name == "" {
		s.log.Warnw("Ignoring unreadable session identity", "key", s.key, "error", err)
		return nil, nil
	}
	return &identity, nil
}

// Set overwrites any prior identity.
func (s *SessionSlot) Set(ctx context.Context, identity models.SessionIdentity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Update(ctx, s.key, func([]byte) ([]byte, error) { return raw, nil }); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *SessionSlot) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
