// Package storetest holds checks shared by the KV backend tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// AssertNoLostUpdates builds one EntityStore per handle, as separate
// processes would, and inserts orders from all of them concurrently. Every
// handle must address the same backend namespace.
func AssertNoLostUpdates(t *testing.T, handles ...store.KV) {
	t.Helper()
	require.GreaterOrEqual(t, len(handles), 2)
	ctx := context.Background()
	const perStore = 5

	stores := make([]*store.EntityStore, len(handles))
	for i, kv := range handles {
		stores[i] = store.New(kv, zap.NewNop().Sugar())
	}
	require.NoError(t, handles[0].Delete(ctx, store.KeyOrders))

	var wg sync.WaitGroup
	for p, s := range stores {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(id string, s *store.EntityStore) {
				defer wg.Done()
				assert.NoError(t, s.Orders.Insert(ctx, models.Order{ID: id, Status: models.OrderPending}, true))
			}(fmt.Sprintf("o_%d_%d", p, i), s)
		}
	}
	wg.Wait()

	assert.Len(t, stores[len(stores)-1].Orders.Load(ctx), perStore*len(stores))
}
