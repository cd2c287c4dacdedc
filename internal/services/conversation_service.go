package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/db"
	"github.com/Alexjoshwa/agri-1.0/internal/events"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/utils"
)

// IConversationService defines the interface for conversation routing.
type IConversationService interface {
	EnsureForOrder(ctx context.Context, order models.Order, message string) (*models.Conversation, error)
	EnsureForListingInquiry(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Conversation, error)
	PostMessage(ctx context.Context, conversationID, fromName, text string) (*models.Message, error)
	List(ctx context.Context) []models.Conversation
	FindByID(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, name string) []models.Conversation
}

// conversationService implements IConversationService.
type conversationService struct {
	st        *store.EntityStore
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewConversationService creates a new ConversationService.
func NewConversationService(st *store.EntityStore, publisher events.Publisher, log *zap.SugaredLogger) IConversationService {
	return &conversationService{st: st, publisher: publisher, log: log}
}

type conversationTx = store.Tx[models.Conversation]

// newMessage stamps a message no earlier than the last one in c, so timestamp
// order always equals insertion order.
func newMessage(c models.Conversation, from, text string) models.Message {
	ts := models.Millis(timeNow())
	if last := c.LastMessage(); last != nil && last.Timestamp > ts {
		ts = last.Timestamp
	}
	return models.Message{
		ID:        utils.NewEntityID(models.PrefixMessage),
		From:      from,
		Text:      text,
		Timestamp: ts,
	}
}

// EnsureForOrder finds the order's conversation or creates it at the end of
// the collection, then appends message (attributed to the seller) when it is
// not blank. Repeated calls never create a second conversation for the order.
func (s *conversationService) EnsureForOrder(ctx context.Context, order models.Order, message string) (*models.Conversation, error) {
	if order.ID == "" {
		return nil, validationError("order id is required")
	}
	message = strings.TrimSpace(message)

	var result models.Conversation
	var posted *models.Message
	err := db.Try(func() error {
		return s.st.Conversations.Update(ctx, func(tx *conversationTx) error {
			posted = nil
			convo, found := tx.Lookup(store.IndexConversationOrder, order.ID)
			if !found {
				orderID := order.ID
				convo = models.Conversation{
					ID:           utils.NewEntityID(models.PrefixConversation),
					OrderID:      &orderID,
					Participants: []string{order.BuyerName, order.SellerName},
					Messages:     []models.Message{},
				}
				if err := tx.Insert(convo, false); err != nil {
					return err
				}
			}
			if message == "" {
				result = convo
				return nil
			}
			updated, err := tx.Modify(convo.ID, func(c *models.Conversation) error {
				msg := newMessage(*c, order.SellerName, message)
				c.Messages = append(c.Messages, msg)
				posted = &msg
				return nil
			})
			if err != nil {
				return err
			}
			result = updated
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure conversation for order %s: %w", order.ID, err)
	}

	if posted != nil {
		s.publishPosted(ctx, result, *posted)
	}
	return &result, nil
}

// EnsureForListingInquiry finds the direct conversation between the listing
// owner and the actor (or "Guest"), keyed by the exact unordered pair, or
// creates it at the front with a seeded inquiry message from the owner.
func (s *conversationService) EnsureForListingInquiry(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Conversation, error) {
	listing, err := s.st.Listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFound(err, "listing", listingID)
	}
	owner := listing.OwnerName
	me := actor.DisplayName()
	pair := models.PairKey(owner, me)

	var result models.Conversation
	err = db.Try(func() error {
		return s.st.Conversations.Update(ctx, func(tx *conversationTx) error {
			if existing, ok := tx.Lookup(store.IndexConversationPair, pair); ok {
				result = existing
				return nil
			}
			convo := models.Conversation{
				ID:           utils.NewEntityID(models.PrefixConversation),
				Participants: []string{owner, me},
			}
			convo.Messages = []models.Message{newMessage(convo, owner, inquiryText(listing))}
			if err := tx.Insert(convo, true); err != nil {
				return err
			}
			result = convo
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation for listing %s: %w", listingID, err)
	}
	return &result, nil
}

// PostMessage appends a message to the conversation. A blank sender posts as "Guest".
func (s *conversationService) PostMessage(ctx context.Context, conversationID, fromName, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("message text is required")
	}
	from := strings.TrimSpace(fromName)
	if from == "" {
		from = models.GuestName
	}

	var msg models.Message
	var convo models.Conversation
	err := s.st.Conversations.Update(ctx, func(tx *conversationTx) error {
		updated, err := tx.Modify(conversationID, func(c *models.Conversation) error {
			msg = newMessage(*c, from, text)
			c.Messages = append(c.Messages, msg)
			return nil
		})
		convo = updated
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(err, "conversation", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	s.publishPosted(ctx, convo, msg)
	return &msg, nil
}

func (s *conversationService) List(ctx context.Context) []models.Conversation {
	return s.st.Conversations.Load(ctx)
}

func (s *conversationService) FindByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	convo, err := s.st.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, notFound(err, "conversation", conversationID)
	}
	return &convo, nil
}

func (s *conversationService) ListForParticipant(ctx context.Context, name string) []models.Conversation {
	all := s.st.Conversations.Load(ctx)
	out := make([]models.Conversation, 0, len(all))
	for _, c := range all {
		if c.HasParticipant(name) {
			out = append(out, c)
		}
	}
	return out
}

func (s *conversationService) publishPosted(ctx context.Context, convo models.Conversation, msg models.Message) {
	event := events.MessagePosted{ConversationID: convo.ID, OrderID: convo.OrderID, Message: msg}
	if err := s.publisher.Publish(ctx, events.SubjectMessagePosted, event); err != nil {
		s.log.Warnw("Failed to publish message event", "conversationID", convo.ID, "error", err)
	}
}

func inquiryText(l models.Listing) string {
	return fmt.Sprintf("Hi, I'm interested in your listing: %s - %s %s", l.Crop, formatQuantity(l.Quantity), l.Unit)
}

// formatQuantity prints a quantity without trailing zeros: 5, 2.5, 0.125.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
