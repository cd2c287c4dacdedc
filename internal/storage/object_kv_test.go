package storage

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/store/storetest"
)

// Runs against a real S3-compatible server only when S3_ENDPOINT_TEST is set.
// Each test writes under its own prefix.
func newTestObjectKV(t *testing.T) *ObjectKV {
	t.Helper()
	return newTestObjectKVWithPrefix(t, "t_"+uuid.NewString()+"/")
}

func newTestObjectKVWithPrefix(t *testing.T, prefix string) *ObjectKV {
	t.Helper()
	endpoint := os.Getenv("S3_ENDPOINT_TEST")
	if endpoint == "" {
		t.Skip("S3_ENDPOINT_TEST not set")
	}
	kv, err := NewObjectKV(context.Background(), ObjectKVConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("S3_ACCESS_KEY_TEST"),
		SecretKey: os.Getenv("S3_SECRET_KEY_TEST"),
		Bucket:    "agri-test",
		Prefix:    prefix,
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Delete(context.Background(), store.AllKeys...) })
	return kv
}

func TestObjectKV_ObjectName(t *testing.T) {
	kv := &ObjectKV{prefix: "prod/"}
	assert.Equal(t, "prod/"+store.KeyOrders+".json", kv.objectName(store.KeyOrders))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
	assert.True(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("connection reset")))
	assert.False(t, isNotFound(nil))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(minio.ErrorResponse{StatusCode: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(minio.ErrorResponse{Code: "ConditionalRequestConflict", StatusCode: http.StatusConflict}))
	assert.False(t, isPreconditionFailed(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
	assert.False(t, isPreconditionFailed(errors.New("connection reset")))
	assert.False(t, isPreconditionFailed(nil))
}

func TestObjectKV_SetGetDelete(t *testing.T) {
	kv := newTestObjectKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, store.KeyListings)
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, store.KeyListings, []byte(`[]`)))
	require.NoError(t, kv.Set(ctx, store.KeyListings, []byte(`[{"id":"l_1"}]`)))
	val, err := kv.Get(ctx, store.KeyListings)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"l_1"}]`, string(val))

	// Deleting keys that were never written is fine.
	require.NoError(t, kv.Delete(ctx, store.AllKeys...))
	_, err = kv.Get(ctx, store.KeyListings)
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func TestObjectKV_BacksEntityStore(t *testing.T) {
	s := store.New(newTestObjectKV(t), zap.NewNop().Sugar())
	ctx := context.Background()

	quote := models.PriceQuote{ID: "p_1", Crop: "Tomato", Market: "District A", Price: 24.5, Low: 22, High: 27, Date: "2026-10-16"}
	require.NoError(t, s.Prices.Insert(ctx, quote, true))

	got, err := s.Prices.FindByID(ctx, "p_1")
	require.NoError(t, err)
	assert.Equal(t, quote, got)
}

func TestObjectKV_UpdateRetriesOnChangedETag(t *testing.T) {
	kv := newTestObjectKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Update(ctx, store.KeyOrders, func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`[]`), nil
	}))

	calls := 0
	require.NoError(t, kv.Update(ctx, store.KeyOrders, func(current []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			require.NoError(t, kv.Set(ctx, store.KeyOrders, []byte(`[{"id":"o_2"}]`)))
		}
		return current, nil
	}))
	assert.Equal(t, 2, calls)

	val, err := kv.Get(ctx, store.KeyOrders)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"o_2"}]`, string(val))
}

func TestObjectKV_TwoClientsDoNotLoseUpdates(t *testing.T) {
	prefix := "t_" + uuid.NewString() + "/"
	storetest.AssertNoLostUpdates(t, newTestObjectKVWithPrefix(t, prefix), newTestObjectKVWithPrefix(t, prefix))
}
