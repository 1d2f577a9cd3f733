package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statement logs through zap, carrying the request,
// property and tenant fields found on the context.
type GormLogger struct {
	logger                    *zap.Logger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether lookups that miss are logged as errors.
// Misses are expected here: repositories turn them into NOT_FOUND.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreRecordNotFoundError = ignore
	}
}

// NewGormLogger creates a GORM logger writing to zapLogger under the "gorm" name
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:                    zapLogger.Named("gorm"),
		logLevel:                  level,
		slowThreshold:             200 * time.Millisecond,
		ignoreRecordNotFoundError: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.logLevel = level
	return &cp
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().With(fieldsAsArgs(ctx)...).Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().With(fieldsAsArgs(ctx)...).Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().With(fieldsAsArgs(ctx)...).Errorf(msg, data...)
	}
}

// Trace logs one executed statement.
//
// A versioned UPDATE that matched no row is a lost compare-and-set: another
// writer moved the property or tenant forward first. It is logged at warn
// with conflict=true so double-booking attempts show up without SQL-level
// debug logging.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, Fields(ctx)...)

	if err != nil {
		if l.logLevel < gormlogger.Error || (l.ignoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return
		}
		l.logger.Error("SQL error", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= gormlogger.Warn {
		if rows == 0 && isVersionedUpdate(sql) {
			l.logger.Warn("Versioned update matched no row", append(fields, zap.Bool("conflict", true))...)
			return
		}
		if l.slowThreshold > 0 && elapsed > l.slowThreshold {
			l.logger.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
			return
		}
	}

	if l.logLevel >= gormlogger.Info {
		l.logger.Debug("SQL", fields...)
	}
}

// isVersionedUpdate reports whether sql is an UPDATE guarded by a version predicate,
// the shape produced by the repositories' SaveWithLock.
func isVersionedUpdate(sql string) bool {
	s := strings.ToLower(strings.TrimSpace(sql))
	if !strings.HasPrefix(s, "update") {
		return false
	}
	where := strings.LastIndex(s, " where ")
	return where >= 0 && strings.Contains(s[where:], "version")
}

func fieldsAsArgs(ctx context.Context) []any {
	fields := Fields(ctx)
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return args
}

// MapGormLogLevel maps the configured log.gorm_level to a GORM level.
// Unknown values fall back to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
