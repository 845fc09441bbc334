package metrics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/redis/go-redis/v9"

	"github.com/prometheus/client_golang/prometheus"

	"rossmann/pkg/logger"
)

// ForecastCollector exposes gauges read from the backing stores at scrape
// time. Either store may be nil when the backend is disabled.
type ForecastCollector struct {
	log         *logger.Logger
	clickhouse  driver.Conn
	redis       *redis.Client
	cachePrefix string

	// Descriptors
	loggedForecasts *prometheus.Desc
	cachedOutlooks  *prometheus.Desc
}

// NewForecastCollector creates a collector over the forecast log and the
// outlook cache.
func NewForecastCollector(log *logger.Logger, clickhouse driver.Conn, redis *redis.Client, cachePrefix string) *ForecastCollector {
	return &ForecastCollector{
		log:         log,
		clickhouse:  clickhouse,
		redis:       redis,
		cachePrefix: cachePrefix,

		loggedForecasts: prometheus.NewDesc(
			"rossmann_logged_forecasts_24h",
			"Predictions written to the forecast log in the last 24h by source",
			[]string{"source"}, nil,
		),
		cachedOutlooks: prometheus.NewDesc(
			"rossmann_cached_outlooks",
			"Store outlooks currently held in the cache",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ForecastCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.loggedForecasts
	ch <- c.cachedOutlooks
}

// Collect implements prometheus.Collector
func (c *ForecastCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.clickhouse != nil {
		c.collectLoggedForecasts(ctx, ch)
	}
	if c.redis != nil {
		c.collectCachedOutlooks(ctx, ch)
	}
}

func (c *ForecastCollector) collectLoggedForecasts(ctx context.Context, ch chan<- prometheus.Metric) {
	var stats []struct {
		Source string `ch:"source"`
		Count  uint64 `ch:"count"`
	}
	err := c.clickhouse.Select(ctx, &stats, `
		SELECT source, count() AS count
		FROM forecasts
		WHERE created_at > now() - INTERVAL 1 DAY
		GROUP BY source
	`)
	if err != nil {
		c.log.Errorw("Failed to collect forecast log metric", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.loggedForecasts,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Source,
		)
	}
}

func (c *ForecastCollector) collectCachedOutlooks(ctx context.Context, ch chan<- prometheus.Metric) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, c.cachePrefix+"*", 500).Result()
		if err != nil {
			c.log.Errorw("Failed to collect outlook cache metric", "error", err)
			return
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.cachedOutlooks,
		prometheus.GaugeValue,
		float64(total),
	)
}

// RegisterCollector registers a custom collector
func RegisterCollector(collector prometheus.Collector) {
	prometheus.MustRegister(collector)
}
