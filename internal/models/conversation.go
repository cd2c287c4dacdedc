package models

import "sort"

// Message is one entry of a conversation. Messages are never edited or removed.
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"` // epoch millis
}

// Conversation is a message thread between two participants, optionally tied to an order.
type Conversation struct {
	ID           string    `json:"id"`
	OrderID      *string   `json:"orderId"` // nil for a direct listing inquiry
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
}

func (c Conversation) GetID() string { return c.ID }

// IsDirect reports whether the conversation is a listing inquiry with no order.
func (c Conversation) IsDirect() bool {
	return c.OrderID == nil
}

// LastMessage returns the most recent message, or nil for an empty thread.
func (c Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasParticipant reports whether name takes part in the conversation.
func (c Conversation) HasParticipant(name string) bool {
	for _, p := range c.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// PairKey returns the key of the unordered participant pair {a, b}.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "\x1f" + pair[1]
}

// ParticipantKey returns the pair key of a two-party conversation.
func (c Conversation) ParticipantKey() (string, bool) {
	if len(c.Participants) != 2 {
		return "", false
	}
	return PairKey(c.Participants[0], c.Participants[1]), true
}
