package pricefeed

import (
	"math"
	"math/rand"
	"sync"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

// Simulator nudges market quotes by a bounded random amount. It runs only when
// a refresh is explicitly requested.
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	jitter float64
}

// NewSimulator returns a simulator moving prices by at most jitter per refresh.
func NewSimulator(jitter float64, seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed)), jitter: jitter}
}

// Apply moves q.Price by a uniform delta in [-jitter, jitter), never below 1,
// and re-derives the low/high band and the quote date.
func (s *Simulator) Apply(q *models.PriceQuote, today string) {
	s.mu.Lock()
	delta := (s.rng.Float64()*2 - 1) * s.jitter
	s.mu.Unlock()

	price := math.Max(1, round2(q.Price+delta))
	q.Price = price
	q.Low = math.Max(1, math.Round(price-2))
	q.High = math.Round(price + 2)
	q.Date = today
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
