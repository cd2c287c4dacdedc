package pricefeed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

func TestSimulator_ApplyStaysInBand(t *testing.T) {
	sim := NewSimulator(1, 42)
	q := models.PriceQuote{ID: "p_1", Crop: "Tomato", Market: "District A", Price: 24.5, Low: 22, High: 26, Date: "2026-01-01"}

	for i := 0; i < 200; i++ {
		before := q.Price
		sim.Apply(&q, "2026-10-15")

		assert.LessOrEqual(t, math.Abs(q.Price-before), 1.01)
		assert.GreaterOrEqual(t, q.Price, 1.0)
		assert.Equal(t, math.Max(1, math.Round(q.Price-2)), q.Low)
		assert.Equal(t, math.Round(q.Price+2), q.High)
		assert.Equal(t, round2(q.Price), q.Price)
	}
	assert.Equal(t, "2026-10-15", q.Date)
	assert.Equal(t, "Tomato", q.Crop)
}

func TestSimulator_FloorAtOne(t *testing.T) {
	sim := NewSimulator(5, 7)
	q := models.PriceQuote{Price: 1}
	for i := 0; i < 50; i++ {
		sim.Apply(&q, "2026-10-15")
		assert.GreaterOrEqual(t, q.Price, 1.0)
		assert.GreaterOrEqual(t, q.Low, 1.0)
	}
}

func TestSimulator_ZeroJitterKeepsPrice(t *testing.T) {
	sim := NewSimulator(0, 1)
	q := models.PriceQuote{Price: 30}
	sim.Apply(&q, "2026-10-15")
	assert.Equal(t, 30.0, q.Price)
	assert.Equal(t, 28.0, q.Low)
	assert.Equal(t, 32.0, q.High)
}
