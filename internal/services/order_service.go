package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/db"
	"github.com/Alexjoshwa/agri-1.0/internal/events"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/utils"
)

// IOrderService defines the interface for the order lifecycle.
type IOrderService interface {
	PlaceOrder(ctx context.Context, actor *models.SessionIdentity, listingID string, quantity float64, agreedPriceHint *float64) (*models.Order, error)
	Accept(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error)
	Complete(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error)
	Cancel(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error)
	ToggleAccept(ctx context.Context, orderID string) (*models.Order, error)
	AcceptForListing(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Order, error)
	List(ctx context.Context) []models.Order
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	ListForParticipant(ctx context.Context, name string) []models.Order
}

// orderService implements IOrderService.
type orderService struct {
	st            *store.EntityStore
	conversations IConversationService
	publisher     events.Publisher
	log           *zap.SugaredLogger
}

// NewOrderService creates a new OrderService.
func NewOrderService(st *store.EntityStore, conversations IConversationService, publisher events.Publisher, log *zap.SugaredLogger) IOrderService {
	return &orderService{st: st, conversations: conversations, publisher: publisher, log: log}
}

type orderTx = store.Tx[models.Order]

func placedText(o models.Order) string {
	return fmt.Sprintf("Order #%s placed for %s %s of %s", o.ID, formatQuantity(o.Quantity), o.Unit, o.Crop)
}

func acceptedText(o models.Order) string {
	return fmt.Sprintf("Seller accepted your order %s. Arrange pickup/delivery.", o.ID)
}

// PlaceOrder creates a pending order for a declared buyer. A listing with a
// positive price fixes the agreed price; otherwise the buyer's hint (or 0) is
// used. The order's conversation is opened with a notice from the seller.
func (s *orderService) PlaceOrder(ctx context.Context, actor *models.SessionIdentity, listingID string, quantity float64, agreedPriceHint *float64) (*models.Order, error) {
	if !actor.IsBuyer() {
		return nil, unauthorizedError("only a declared buyer may place orders")
	}
	if !validQuantity(quantity) {
		return nil, validationError("quantity must be a positive number")
	}
	if agreedPriceHint != nil && (math.IsNaN(*agreedPriceHint) || math.IsInf(*agreedPriceHint, 0) || *agreedPriceHint < 0) {
		return nil, validationError("offer price must be zero or more")
	}

	listing, err := s.st.Listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFound(err, "listing", listingID)
	}

	agreed := 0.0
	switch {
	case listing.HasPrice():
		agreed = *listing.Price
	case agreedPriceHint != nil:
		agreed = *agreedPriceHint
	}

	var order models.Order
	err = db.Try(func() error {
		order = models.Order{
			ID:          utils.NewEntityID(models.PrefixOrder),
			ListingID:   listing.ID,
			BuyerName:   actor.Name,
			SellerName:  listing.OwnerName,
			Crop:        listing.Crop,
			Quantity:    quantity,
			Unit:        listing.Unit,
			AgreedPrice: agreed,
			Status:      models.OrderPending,
			CreatedAt:   models.Millis(timeNow()),
		}
		return s.st.Orders.Insert(ctx, order, true)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	s.log.Infow("Order placed", "orderID", order.ID, "listingID", listing.ID, "buyer", order.BuyerName, "seller", order.SellerName)

	if err := s.publisher.Publish(ctx, events.SubjectOrderCreated, events.OrderCreated{Order: order}); err != nil {
		s.log.Warnw("Failed to publish order event", "orderID", order.ID, "error", err)
	}
	if _, err := s.conversations.EnsureForOrder(ctx, order, placedText(order)); err != nil {
		s.log.Warnw("Order placed without conversation", "orderID", order.ID, "error", err)
	}
	return &order, nil
}

// transition applies one lifecycle step under the orders lock. authorize runs
// against the current record before the status changes.
func (s *orderService) transition(ctx context.Context, orderID, actorName string, authorize func(models.Order) error, next func(models.Order) (models.OrderStatus, error)) (*models.Order, error) {
	var from models.OrderStatus
	var updated models.Order
	err := s.st.Orders.Update(ctx, func(tx *orderTx) error {
		var err error
		updated, err = tx.Modify(orderID, func(o *models.Order) error {
			if authorize != nil {
				if err := authorize(*o); err != nil {
					return err
				}
			}
			status, err := next(*o)
			if err != nil {
				return err
			}
			from = o.Status
			if err := o.Transition(status); err != nil {
				return fmt.Errorf("%w: order %s: %w", ErrValidation, o.ID, err)
			}
			return nil
		})
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(err, "order", orderID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Infow("Order status updated", "orderID", updated.ID, "from", from, "to", updated.Status)
	event := events.OrderStatusUpdated{OrderID: updated.ID, From: from, To: updated.Status, ActorName: actorName}
	if err := s.publisher.Publish(ctx, events.SubjectOrderStatusUpdated, event); err != nil {
		s.log.Warnw("Failed to publish order status event", "orderID", updated.ID, "error", err)
	}
	return &updated, nil
}

func toStatus(status models.OrderStatus) func(models.Order) (models.OrderStatus, error) {
	return func(models.Order) (models.OrderStatus, error) { return status, nil }
}

func requireSeller(actor *models.SessionIdentity) func(models.Order) error {
	return func(o models.Order) error {
		if actor == nil || actor.Name == "" || actor.Name != o.SellerName {
			return unauthorizedError("only the seller may change order %s", o.ID)
		}
		return nil
	}
}

func (s *orderService) Accept(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	return s.transition(ctx, orderID, actor.DisplayName(), requireSeller(actor), toStatus(models.OrderAccepted))
}

func (s *orderService) Complete(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	return s.transition(ctx, orderID, actor.DisplayName(), requireSeller(actor), toStatus(models.OrderCompleted))
}

// Cancel moves a pending or accepted order to cancelled. Either party may cancel.
func (s *orderService) Cancel(ctx context.Context, actor *models.SessionIdentity, orderID string) (*models.Order, error) {
	authorize := func(o models.Order) error {
		if actor == nil || !o.IsParty(actor.Name) {
			return unauthorizedError("only the buyer or the seller may cancel order %s", o.ID)
		}
		return nil
	}
	return s.transition(ctx, orderID, actor.DisplayName(), authorize, toStatus(models.OrderCancelled))
}

// ToggleAccept advances pending to accepted and accepted to completed.
// Terminal orders fail with ErrValidation.
func (s *orderService) ToggleAccept(ctx context.Context, orderID string) (*models.Order, error) {
	next := func(o models.Order) (models.OrderStatus, error) {
		switch o.Status {
		case models.OrderPending:
			return models.OrderAccepted, nil
		case models.OrderAccepted:
			return models.OrderCompleted, nil
		}
		return "", validationError("order %s is already %s", o.ID, o.Status)
	}
	return s.transition(ctx, orderID, "", nil, next)
}

// AcceptForListing accepts the first pending order, in collection order
// (newest first), whose seller is the listing owner. Only the owner may do this.
func (s *orderService) AcceptForListing(ctx context.Context, actor *models.SessionIdentity, listingID string) (*models.Order, error) {
	listing, err := s.st.Listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFound(err, "listing", listingID)
	}
	if actor == nil || actor.Name == "" || actor.Name != listing.OwnerName {
		return nil, unauthorizedError("only %s may accept orders for listing %s", listing.OwnerName, listing.ID)
	}

	var accepted models.Order
	err = s.st.Orders.Update(ctx, func(tx *orderTx) error {
		target, ok := tx.Find(func(o models.Order) bool {
			return o.SellerName == listing.OwnerName && o.Status == models.OrderPending
		})
		if !ok {
			return fmt.Errorf("%w: no pending orders for listing %s", ErrNotFound, listing.ID)
		}
		updated, err := tx.Modify(target.ID, func(o *models.Order) error {
			return o.Transition(models.OrderAccepted)
		})
		accepted = updated
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("Order accepted for listing", "orderID", accepted.ID, "listingID", listing.ID)
	event := events.OrderStatusUpdated{OrderID: accepted.ID, From: models.OrderPending, To: models.OrderAccepted, ActorName: actor.Name}
	if err := s.publisher.Publish(ctx, events.SubjectOrderStatusUpdated, event); err != nil {
		s.log.Warnw("Failed to publish order status event", "orderID", accepted.ID, "error", err)
	}
	if _, err := s.conversations.EnsureForOrder(ctx, accepted, acceptedText(accepted)); err != nil {
		s.log.Warnw("Order accepted without notification", "orderID", accepted.ID, "error", err)
	}
	return &accepted, nil
}

func (s *orderService) List(ctx context.Context) []models.Order {
	return s.st.Orders.Load(ctx)
}

func (s *orderService) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.st.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order", orderID)
	}
	return &order, nil
}

func (s *orderService) ListForParticipant(ctx context.Context, name string) []models.Order {
	all := s.st.Orders.Load(ctx)
	out := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.IsParty(name) {
			out = append(out, o)
		}
	}
	return out
}
