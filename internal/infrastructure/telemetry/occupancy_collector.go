package telemetry

import (
	"context"
	"time"

	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PropertyLister is the read side the occupancy collector scrapes
type PropertyLister interface {
	FindAll(ctx context.Context, filter shared.Filter) ([]property.Property, error)
}

// OccupancyCollector exposes bed counts per property and status to Prometheus.
// Counts are derived from a fresh load on every scrape; nothing is cached
// between scrapes, so the numbers always match the stored bed trees.
type OccupancyCollector struct {
	properties PropertyLister
	timeout    time.Duration
	logger     *zap.Logger

	beds          *prometheus.Desc
	propertyCount *prometheus.Desc
}

// NewOccupancyCollector creates a collector backed by properties.
// A non-positive timeout defaults to 5s per scrape.
func NewOccupancyCollector(properties PropertyLister, timeout time.Duration, logger *zap.Logger) *OccupancyCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OccupancyCollector{
		properties: properties,
		timeout:    timeout,
		logger:     logger.Named("occupancy_collector"),
		beds: prometheus.NewDesc("nivaasi_beds",
			"Beds per property by occupancy status",
			[]string{"property_id", "property", "status"}, nil),
		propertyCount: prometheus.NewDesc("nivaasi_properties",
			"Properties currently stored", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.beds
	ch <- c.propertyCount
}

// Collect implements prometheus.Collector
func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	props, err := c.properties.FindAll(ctx, shared.Filter{})
	if err != nil {
		c.logger.Error("Failed to load properties for occupancy scrape", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(c.beds, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.propertyCount, prometheus.GaugeValue, float64(len(props)))
	for i := range props {
		p := &props[i]
		stats := p.Stats()
		id := p.ID.String()
		for _, s := range []struct {
			status property.BedStatus
			count  int
		}{
			{property.BedStatusAvailable, stats.Available},
			{property.BedStatusOccupied, stats.Occupied},
			{property.BedStatusNotice, stats.Notice},
			{property.BedStatusBlocked, stats.Blocked},
		} {
			ch <- prometheus.MustNewConstMetric(c.beds, prometheus.GaugeValue, float64(s.count), id, p.Name, string(s.status))
		}
	}
}

var _ prometheus.Collector = (*OccupancyCollector)(nil)
