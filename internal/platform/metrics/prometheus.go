package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
)

// MetricsManager holds the marketplace Prometheus metrics on a private registry.
type MetricsManager struct {
	Registry              *prometheus.Registry
	APIRequestsTotal      *prometheus.CounterVec   // by method and outcome
	APILatency            *prometheus.HistogramVec // by method
	DomainEventsTotal     *prometheus.CounterVec   // by subject and result
	OrderTransitionsTotal *prometheus.CounterVec   // by target status
}

// NewMetricsManager initializes and registers the metrics under namespace.
func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	apiRequestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of JSON API calls by method and outcome.",
	}, []string{"method", "outcome"})

	apiLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_latency_seconds",
		Help:      "Latency of JSON API calls by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	domainEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_total",
		Help:      "Total number of domain events published by subject and result.",
	}, []string{"subject", "result"})

	orderTransitionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of order status transitions by target status.",
	}, []string{"status"})

	registry.MustRegister(
		apiRequestsTotal,
		apiLatency,
		domainEventsTotal,
		orderTransitionsTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:              registry,
		APIRequestsTotal:      apiRequestsTotal,
		APILatency:            apiLatency,
		DomainEventsTotal:     domainEventsTotal,
		OrderTransitionsTotal: orderTransitionsTotal,
	}
}

// ObserveAPICall records one dispatched JSON API method.
func (m *MetricsManager) ObserveAPICall(method string, success bool, elapsed time.Duration) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	m.APIRequestsTotal.WithLabelValues(method, outcome).Inc()
	m.APILatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentPublisher wraps next so every published event is counted.
func (m *MetricsManager) InstrumentPublisher(next events.Publisher) events.Publisher {
	return &countingPublisher{next: next, m: m}
}

type countingPublisher struct {
	next events.Publisher
	m    *MetricsManager
}

func (p *countingPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	switch ev := event.(type) {
	case events.OrderCreated:
		p.m.OrderTransitionsTotal.WithLabelValues(string(ev.Order.Status)).Inc()
	case events.OrderStatusUpdated:
		p.m.OrderTransitionsTotal.WithLabelValues(string(ev.To)).Inc()
	}

	err := p.next.Publish(ctx, subject, event)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	p.m.DomainEventsTotal.WithLabelValues(subject, result).Inc()
	return err
}
