package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/pricefeed"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// MarketAll disables the market filter.
const MarketAll = "all"

// IPriceService defines the interface for the market price index.
type IPriceService interface {
	List(ctx context.Context, market string) []models.PriceQuote
	Markets(ctx context.Context) []string
	Refresh(ctx context.Context) ([]models.PriceQuote, error)
}

// priceService implements IPriceService.
type priceService struct {
	st        *store.EntityStore
	sim       *pricefeed.Simulator
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewPriceService creates a new PriceService.
func NewPriceService(st *store.EntityStore, sim *pricefeed.Simulator, publisher events.Publisher, log *zap.SugaredLogger) IPriceService {
	return &priceService{st: st, sim: sim, publisher: publisher, log: log}
}

// List returns the quotes of one market, or all of them for "" or "all".
func (s *priceService) List(ctx context.Context, market string) []models.PriceQuote {
	all := s.st.Prices.Load(ctx)
	if market == "" || market == MarketAll {
		return all
	}
	out := make([]models.PriceQuote, 0, len(all))
	for _, p := range all {
		if p.Market == market {
			out = append(out, p)
		}
	}
	return out
}

// Markets returns the sorted set of market names.
func (s *priceService) Markets(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var markets []string
	for _, p := range s.st.Prices.Load(ctx) {
		if _, ok := seen[p.Market]; ok {
			continue
		}
		seen[p.Market] = struct{}{}
		markets = append(markets, p.Market)
	}
	sort.Strings(markets)
	return markets
}

// Refresh runs the price feed simulator over every quote.
func (s *priceService) Refresh(ctx context.Context) ([]models.PriceQuote, error) {
	today := models.DateOf(timeNow())
	var refreshed []models.PriceQuote
	err := s.st.Prices.Update(ctx, func(tx *store.Tx[models.PriceQuote]) error {
		tx.ModifyAll(func(q *models.PriceQuote) {
			s.sim.Apply(q, today)
		})
		refreshed = tx.Items()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh prices: %w", err)
	}

	s.log.Infow("Prices refreshed", "count", len(refreshed))
	if err := s.publisher.Publish(ctx, events.SubjectPricesRefreshed, events.PricesRefreshed{Count: len(refreshed), Date: today}); err != nil {
		s.log.Warnw("Failed to publish prices event", "error", err)
	}
	return refreshed, nil
}
