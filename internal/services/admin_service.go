package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/utils"
)

// IAdminService defines store-wide maintenance operations.
type IAdminService interface {
	Seed(ctx context.Context) error
	Reset(ctx context.Context) error
}

// adminService implements IAdminService.
type adminService struct {
	st  *store.EntityStore
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewAdminService creates a new AdminService.
func NewAdminService(st *store.EntityStore, cfg *config.Config, log *zap.SugaredLogger) IAdminService {
	return &adminService{st: st, cfg: cfg, log: log}
}

func seedPrices(today string) []models.PriceQuote {
	quote := func(crop, market string, price, low, high float64) models.PriceQuote {
		return models.PriceQuote{
			ID: utils.NewEntityID(models.PrefixPrice), Crop: crop, Market: market,
			Price: price, Low: low, High: high, Date: today,
		}
	}
	return []models.PriceQuote{
		quote("Tomato", "District A", 24.5, 22, 26),
		quote("Potato", "District B", 16.2, 15, 18),
		quote("Onion", "District C", 30.0, 28, 31),
		quote("Rice (Raw)", "District A", 45.5, 44, 48),
	}
}

func seedListings(now int64, today string) []models.Listing {
	price := func(v float64) *float64 { return &v }
	listing := func(name string, role models.Role, crop, grade string, qty float64, p *float64, location, notes string) models.Listing {
		return models.Listing{
			ID: utils.NewEntityID(models.PrefixListing), OwnerName: name, OwnerRole: role,
			Crop: crop, Grade: grade, Quantity: qty, Unit: DefaultUnit, Price: p,
			AvailableFrom: today, Location: location, Notes: notes, CreatedAt: now,
		}
	}
	return []models.Listing{
		listing("Ramesh", models.RoleFarmer, "Tomato", "Fresh", 120, price(24), "District A", "Harvest next 2 days"),
		listing("Meera", models.RoleFarmer, "Potato", "A", 500, price(15.5), "District B", "Good for processing"),
		listing("Local Buyer", models.RoleBuyer, "Rice (Raw)", "Sela", 1000, price(46), "District A", "Bulk buyer"),
	}
}

// Seed materializes the demo prices and listings, and empty orders and
// conversations, for every collection that has never been saved.
func (s *adminService) Seed(ctx context.Context) error {
	now := timeNow()
	today := models.DateOf(now)

	type seeder struct {
		key     string
		present func(context.Context) (bool, error)
		save    func(context.Context) error
	}
	seeders := []seeder{
		{store.KeyPrices, s.st.Prices.Present, func(ctx context.Context) error { return s.st.Prices.Save(ctx, seedPrices(today)) }},
		{store.KeyListings, s.st.Listings.Present, func(ctx context.Context) error {
			return s.st.Listings.Save(ctx, seedListings(models.Millis(now), today))
		}},
		{store.KeyOrders, s.st.Orders.Present, func(ctx context.Context) error { return s.st.Orders.Save(ctx, nil) }},
		{store.KeyConversations, s.st.Conversations.Present, func(ctx context.Context) error { return s.st.Conversations.Save(ctx, nil) }},
	}

	for _, sd := range seeders {
		present, err := sd.present(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", sd.key, err)
		}
		if present {
			continue
		}
		if err := sd.save(ctx); err != nil {
			return fmt.Errorf("failed to seed %s: %w", sd.key, err)
		}
		s.log.Infow("Seeded collection", "key", sd.key)
	}
	return nil
}

// Reset clears every collection and the session identity, then re-seeds when
// seeding is enabled.
func (s *adminService) Reset(ctx context.Context) error {
	if err := s.st.Reset(ctx); err != nil {
		return err
	}
	s.log.Infow("Store reset")
	if !s.cfg.SeedOnStart {
		return nil
	}
	return s.Seed(ctx)
}
