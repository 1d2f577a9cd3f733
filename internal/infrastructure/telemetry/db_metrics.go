package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records query counts, latency and connection pool state
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter

	slowThreshold time.Duration
	registration  metric.Registration
	stopOnce      sync.Once
	logger        *zap.Logger
}

// NewDBMetrics creates the instruments and observes pool stats of sqlDB on every collection
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}

	queryTotal, err := NewCounter(meter, "db_query_total", "Total number of database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "db_slow_query_total", "Queries slower than the slow-query threshold", "{query}")
	if err != nil {
		return nil, err
	}

	m := &DBMetrics{
		queryTotal:     queryTotal,
		queryDuration:  queryDuration,
		slowQueryTotal: slowQueryTotal,
		slowThreshold:  slowThreshold,
		logger:         logger,
	}

	if sqlDB != nil {
		connections, err := meter.Int64ObservableGauge("db_pool_connections",
			metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}"))
		if err != nil {
			return nil, err
		}
		maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
			metric.WithDescription("Maximum number of open connections"), metric.WithUnit("{connection}"))
		if err != nil {
			return nil, err
		}
		m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			stats := sqlDB.Stats()
			o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
			o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
			o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
			o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
			return nil
		}, connections, maxConnections)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	if operation == "" {
		operation = "UNKNOWN"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))
	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Register installs the timing callbacks on db
func (m *DBMetrics) Register(db *gorm.DB) error {
	return registerAround(db, "db_metrics", markQueryStart, func(op string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			ctx := db.Statement.Context
			if ctx == nil {
				return
			}
			if elapsed, ok := queryElapsed(ctx); ok {
				m.RecordQuery(ctx, op, db.Statement.Table, elapsed)
			}
		}
	})
}

// Stop unregisters the pool observer. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		if m.registration != nil {
			if err := m.registration.Unregister(); err != nil {
				m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
			}
		}
	})
}
