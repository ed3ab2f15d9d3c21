package infra

import (
	"context"

	"slot-server/server/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusStatsStore expõe os eventos de conexão como métricas.
type PrometheusStatsStore struct {
	events      *prometheus.CounterVec
	bytesRead   prometheus.Counter
	activeSlots prometheus.Gauge
	drainSize   prometheus.Histogram
}

type prometheusConfig struct {
	namespace string
	registry  prometheus.Registerer
}

type PrometheusStatsOption func(*prometheusConfig)

func WithNamespace(namespace string) PrometheusStatsOption {
	return func(c *prometheusConfig) { c.namespace = namespace }
}

// WithRegistry troca o registry (padrão: prometheus.DefaultRegisterer).
// Nos testes use prometheus.NewRegistry() para não colidir entre instâncias.
func WithRegistry(registry prometheus.Registerer) PrometheusStatsOption {
	return func(c *prometheusConfig) { c.registry = registry }
}

func NewPrometheusStatsStore(opts ...PrometheusStatsOption) *PrometheusStatsStore {
	cfg := prometheusConfig{
		namespace: "slotserver",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.registry)

	return &PrometheusStatsStore{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "connection_events_total",
			Help:      "Connection events by kind (admitted, rejected, drained, failed)",
		}, []string{"kind"}),

		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "bytes_read_total",
			Help:      "Total bytes drained from clients",
		}),

		activeSlots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Name:      "active_slots",
			Help:      "Number of clients being served",
		}),

		drainSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "client_bytes",
			Help:      "Bytes accumulated per served client",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.events.WithLabelValues(string(ev.Kind)).Inc()
	s.activeSlots.Set(float64(ev.Active))
	if ev.Bytes > 0 {
		s.bytesRead.Add(float64(ev.Bytes))
	}
	if ev.Kind == domain.EventDrained {
		s.drainSize.Observe(float64(ev.Bytes))
	}
	return nil
}
