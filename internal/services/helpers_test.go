package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/events/eventstest"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/pricefeed"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

type testEnv struct {
	st            *store.EntityStore
	kv            *store.MemoryKV
	cfg           *config.Config
	recorder      *eventstest.Recorder
	listings      IListingService
	orders        IOrderService
	conversations IConversationService
	sessions      ISessionService
	prices        IPriceService
	admin         IAdminService
}

var testClock = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	originalNow := timeNow
	timeNow = func() time.Time { return testClock }
	t.Cleanup(func() { timeNow = originalNow })

	log := zap.NewNop().Sugar()
	kv := store.NewMemoryKV()
	st := store.New(kv, log)
	cfg := &config.Config{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		DefaultUnit:   "kg",
		SeedOnStart:   true,
	}
	rec := &eventstest.Recorder{}
	convos := NewConversationService(st, rec, log)

	return &testEnv{
		st:            st,
		kv:            kv,
		cfg:           cfg,
		recorder:      rec,
		listings:      NewListingService(st, cfg, log),
		orders:        NewOrderService(st, convos, rec, log),
		conversations: convos,
		sessions:      NewSessionService(st, cfg, log),
		prices:        NewPriceService(st, pricefeed.NewSimulator(1, 1), rec, log),
		admin:         NewAdminService(st, cfg, log),
	}
}

func buyer(name string) *models.SessionIdentity {
	return &models.SessionIdentity{Name: name, Role: models.RoleBuyer}
}

func farmer(name string) *models.SessionIdentity {
	return &models.SessionIdentity{Name: name, Role: models.RoleFarmer}
}

func price(v float64) *float64 { return &v }
