package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
	"github.com/Alexjoshwa/agri-1.0/internal/events/eventstest"
	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, interface{}) error {
	return errors.New("nats down")
}

func TestObserveAPICall(t *testing.T) {
	m := NewMetricsManager("agri")

	m.ObserveAPICall("placeOrder", true, 20*time.Millisecond)
	m.ObserveAPICall("placeOrder", false, 5*time.Millisecond)
	m.ObserveAPICall("placeOrder", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("placeOrder", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("placeOrder", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.APILatency))
}

func TestInstrumentPublisher_CountsEventsAndTransitions(t *testing.T) {
	m := NewMetricsManager("agri")
	rec := &eventstest.Recorder{}
	pub := m.InstrumentPublisher(rec)
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, events.SubjectOrderCreated, events.OrderCreated{Order: models.Order{ID: "o_1", Status: models.OrderPending}}))
	require.NoError(t, pub.Publish(ctx, events.SubjectOrderStatusUpdated, events.OrderStatusUpdated{OrderID: "o_1", From: models.OrderPending, To: models.OrderAccepted}))
	require.NoError(t, pub.Publish(ctx, events.SubjectMessagePosted, events.MessagePosted{ConversationID: "c_1"}))

	assert.Equal(t, []string{events.SubjectOrderCreated, events.SubjectOrderStatusUpdated, events.SubjectMessagePosted}, rec.Subjects())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitionsTotal.WithLabelValues(string(models.OrderPending))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitionsTotal.WithLabelValues(string(models.OrderAccepted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainEventsTotal.WithLabelValues(events.SubjectMessagePosted, "ok")))
}

func TestInstrumentPublisher_PassesErrorsThrough(t *testing.T) {
	m := NewMetricsManager("agri")
	pub := m.InstrumentPublisher(failingPublisher{})

	err := pub.Publish(context.Background(), events.SubjectPricesRefreshed, events.PricesRefreshed{Count: 4})
	assert.EqualError(t, err, "nats down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainEventsTotal.WithLabelValues(events.SubjectPricesRefreshed, "failed")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := NewMetricsManager("agri")
	m.ObserveAPICall("ping", true, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `agri_api_requests_total{method="ping",outcome="success"} 1`)
}
