package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

// Stable persistence keys. The stored documents are re-read across restarts,
// so these names and the JSON field sets of the models are fixed.
const (
	KeyPrices        = "agr_prices_v1"
	KeyListings      = "agr_listings_v1"
	KeyOrders        = "agr_orders_v1"
	KeyConversations = "agr_convos_v1"
	KeySession       = "agr_user_v1"
)

// Unique index names on the conversations collection.
const (
	IndexConversationOrder = "order"
	IndexConversationPair  = "pair"
)

// AllKeys lists every key owned by the store.
var AllKeys = []string{KeyPrices, KeyListings, KeyOrders, KeyConversations, KeySession}

// EntityStore groups the typed collections and the session slot over one KV.
type EntityStore struct {
	kv            KV
	Prices        *Collection[models.PriceQuote]
	Listings      *Collection[models.Listing]
	Orders        *Collection[models.Order]
	Conversations *Collection[models.Conversation]
	Session       *SessionSlot
}

func New(kv KV, log *zap.SugaredLogger) *EntityStore {
	return &EntityStore{
		kv:       kv,
		Prices:   NewCollection[models.PriceQuote](kv, KeyPrices, log),
		Listings: NewCollection[models.Listing](kv, KeyListings, log),
		Orders:   NewCollection[models.Order](kv, KeyOrders, log),
		Conversations: NewCollection[models.Conversation](kv, KeyConversations, log,
			WithUniqueIndex[models.Conversation](IndexConversationOrder, conversationOrderKey),
			WithUniqueIndex[models.Conversation](IndexConversationPair, conversationPairKey),
		),
		Session: NewSessionSlot(kv, KeySession, log),
	}
}

func conversationOrderKey(c models.Conversation) (string, bool) {
	if c.OrderID == nil {
		return "", false
	}
	return *c.OrderID, true
}

func conversationPairKey(c models.Conversation) (string, bool) {
	if !c.IsDirect() {
		return "", false
	}
	return c.ParticipantKey()
}

// Reset removes all four collections and the session identity in one step,
// leaving the same state as a first run.
func (s *EntityStore) Reset(ctx context.Context) error {
	s.Prices.mu.Lock()
	defer s.Prices.mu.Unlock()
	s.Listings.mu.Lock()
	defer s.Listings.mu.Unlock()
	s.Orders.mu.Lock()
	defer s.Orders.mu.Unlock()
	s.Conversations.mu.Lock()
	defer s.Conversations.mu.Unlock()
	s.Session.mu.Lock()
	defer s.Session.mu.Unlock()

	if err := s.kv.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}
