package metrics

import (
	"context"
	"time"

	"rent_payment_service/internal/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const storeStatsTimeout = 5 * time.Second

// StatsSource is the payment store, read on every scrape.
type StatsSource interface {
	Stats(ctx context.Context) (entities.PaymentStats, error)
}

type storeStatsCollector struct {
	source  StatsSource
	timeout time.Duration
	logger  *zap.Logger

	byStatus *prometheus.Desc
	all      *prometheus.Desc
	revenue  *prometheus.Desc
	up       *prometheus.Desc
}

var _ prometheus.Collector = (*storeStatsCollector)(nil)

func newStoreStatsCollector(source StatsSource, logger *zap.Logger) *storeStatsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &storeStatsCollector{
		source:  source,
		timeout: storeStatsTimeout,
		logger:  logger.Named("metrics.store"),
		byStatus: prometheus.NewDesc(prometheus.BuildFQName(namespace, "store", "payments"),
			"Stored payments by status.", []string{"status"}, nil),
		all: prometheus.NewDesc(prometheus.BuildFQName(namespace, "store", "payments_all"),
			"Stored payments in any status.", nil, nil),
		revenue: prometheus.NewDesc(prometheus.BuildFQName(namespace, "store", "revenue"),
			"Sum of SUCCESS payment amounts.", nil, nil),
		up: prometheus.NewDesc(prometheus.BuildFQName(namespace, "store", "stats_up"),
			"Whether the last store aggregate query succeeded.", nil, nil),
	}
}

func (c *storeStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.byStatus
	ch <- c.all
	ch <- c.revenue
	ch <- c.up
}

func (c *storeStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil {
		c.logger.Warn("store stats unavailable", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.all, prometheus.GaugeValue, float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(stats.Pending), string(entities.PaymentStatusPending))
	ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(stats.Success), string(entities.PaymentStatusSuccess))
	ch <- prometheus.MustNewConstMetric(c.byStatus, prometheus.GaugeValue, float64(stats.Failed), string(entities.PaymentStatusFailed))
	ch <- prometheus.MustNewConstMetric(c.revenue, prometheus.GaugeValue, stats.Revenue.InexactFloat64())
}

// RegisterStoreStats exposes the store aggregates on the registry.
// They are computed at scrape time, so they survive restarts.
func (m *Metrics) RegisterStoreStats(source StatsSource, logger *zap.Logger) error {
	return m.registry.Register(newStoreStatsCollector(source, logger))
}
