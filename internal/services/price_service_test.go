package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
)

func TestPriceService_ListAndMarkets(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.admin.Seed(ctx))

	assert.Len(t, env.prices.List(ctx, MarketAll), 4)
	assert.Len(t, env.prices.List(ctx, ""), 4)

	districtA := env.prices.List(ctx, "District A")
	require.Len(t, districtA, 2)
	assert.Equal(t, "Tomato", districtA[0].Crop)
	assert.Equal(t, "Rice (Raw)", districtA[1].Crop)

	assert.Empty(t, env.prices.List(ctx, "Nowhere"))
	assert.Equal(t, []string{"District A", "District B", "District C"}, env.prices.Markets(ctx))
}

func TestPriceService_Refresh(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.admin.Seed(ctx))
	before := env.prices.List(ctx, MarketAll)

	timeNow = func() time.Time { return testClock.Add(24 * time.Hour) }
	refreshed, err := env.prices.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, refreshed, len(before))

	stored := env.prices.List(ctx, MarketAll)
	assert.Equal(t, refreshed, stored)
	for i, q := range stored {
		assert.Equal(t, before[i].ID, q.ID)
		assert.Equal(t, before[i].Crop, q.Crop)
		assert.InDelta(t, before[i].Price, q.Price, 1.01)
		assert.Equal(t, "2026-10-16", q.Date)
		assert.LessOrEqual(t, q.Low, q.Price)
		assert.GreaterOrEqual(t, q.High, q.Price)
	}
	assert.Contains(t, env.recorder.Subjects(), events.SubjectPricesRefreshed)
}

func TestPriceService_RefreshEmpty(t *testing.T) {
	env := setupTestEnv(t)
	refreshed, err := env.prices.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refreshed)
}
