package models

import (
	"errors"
	"fmt"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// ErrInvalidTransition is returned by Order.Transition for a move the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid order status transition")

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderAccepted, OrderCancelled},
	OrderAccepted:  {OrderCompleted, OrderCancelled},
	OrderCompleted: {},
	OrderCancelled: {},
}

// Order is a buyer's commitment against a listing. SellerName, Crop and Unit
// are snapshots of the listing taken when the order was placed; they are not
// refreshed if the listing changes or disappears.
type Order struct {
	ID          string      `json:"id"`
	ListingID   string      `json:"listingId"`
	BuyerName   string      `json:"buyerName"`
	SellerName  string      `json:"sellerName"`
	Crop        string      `json:"crop"`
	Quantity    float64     `json:"quantity"`
	Unit        string      `json:"unit"`
	AgreedPrice float64     `json:"priceAgreed"`
	Status      OrderStatus `json:"status"`
	CreatedAt   int64       `json:"created"` // epoch millis
}

func (o Order) GetID() string { return o.ID }

// IsTerminal reports whether no further transitions are possible.
func (o Order) IsTerminal() bool {
	return len(validTransitions[o.Status]) == 0
}

// Transition moves the order to next, or returns ErrInvalidTransition.
func (o *Order) Transition(next OrderStatus) error {
	allowed, ok := validTransitions[o.Status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, o.Status)
	}
	for _, s := range allowed {
		if s == next {
			o.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
}

// IsParty reports whether name is the buyer or the seller of the order.
func (o Order) IsParty(name string) bool {
	return name != "" && (name == o.BuyerName || name == o.SellerName)
}
