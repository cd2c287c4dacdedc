package events

import "github.com/Alexjoshwa/agri-1.0/internal/models"

// OrderCreated is published after an order is placed.
type OrderCreated struct {
	Order models.Order `json:"order"`
}

// OrderStatusUpdated is published after every order transition.
type OrderStatusUpdated struct {
	OrderID   string             `json:"orderId"`
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
	ActorName string             `json:"actorName,omitempty"`
}

// MessagePosted is published after a message is appended to a conversation.
type MessagePosted struct {
	ConversationID string         `json:"conversationId"`
	OrderID        *string        `json:"orderId"`
	Message        models.Message `json:"message"`
}

// PricesRefreshed is published after the price feed simulator ran.
type PricesRefreshed struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}
