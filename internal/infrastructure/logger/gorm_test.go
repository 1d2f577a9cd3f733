package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestNewGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.ignoreRecordNotFoundError)

	gl, _ = newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)
	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	other, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Warn, other.logLevel)
}

func TestGormLogger_PrintfLevels(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn)
	ctx := WithPropertyID(context.Background(), "prop-9")

	gl.Info(ctx, "suppressed %s", "info")
	gl.Warn(ctx, "pool at %d%%", 90)
	gl.Error(ctx, "broken")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "pool at 90%", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, "prop-9", logs[0].ContextMap()["property_id"])
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	const (
		selectSQL = `SELECT * FROM "properties" WHERE id = 'p1'`
		casSQL    = `UPDATE "properties" SET "floors"='[]',"version"=4 WHERE id = 'p1' AND version = 3`
	)

	tests := []struct {
		name     string
		level    gormlogger.LogLevel
		opts     []GormLoggerOption
		begin    time.Time
		sql      string
		rows     int64
		err      error
		wantMsg  string
		wantLvl  zapcore.Level
		conflict bool
	}{
		{name: "statement at info", level: gormlogger.Info, sql: selectSQL, rows: 1, wantMsg: "SQL", wantLvl: zapcore.DebugLevel},
		{name: "statement below info", level: gormlogger.Warn, sql: selectSQL, rows: 1},
		{name: "silent", level: gormlogger.Silent, sql: selectSQL, err: errors.New("boom")},
		{name: "error", level: gormlogger.Error, sql: selectSQL, err: errors.New("boom"), wantMsg: "SQL error", wantLvl: zapcore.ErrorLevel},
		{name: "record not found ignored", level: gormlogger.Error, sql: selectSQL, err: gormlogger.ErrRecordNotFound},
		{
			name: "record not found logged", level: gormlogger.Error, sql: selectSQL, err: gormlogger.ErrRecordNotFound,
			opts: []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, wantMsg: "SQL error", wantLvl: zapcore.ErrorLevel,
		},
		{
			name: "slow", level: gormlogger.Warn, sql: selectSQL, rows: 3, begin: time.Now().Add(-time.Second),
			opts: []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, wantMsg: "Slow SQL", wantLvl: zapcore.WarnLevel,
		},
		{
			name: "slow disabled", level: gormlogger.Warn, sql: selectSQL, begin: time.Now().Add(-time.Second),
			opts: []GormLoggerOption{WithSlowThreshold(0)},
		},
		{name: "lost compare-and-set", level: gormlogger.Warn, sql: casSQL, rows: 0, wantMsg: "Versioned update matched no row", wantLvl: zapcore.WarnLevel, conflict: true},
		{name: "won compare-and-set", level: gormlogger.Warn, sql: casSQL, rows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGormLogger(tt.level, tt.opts...)
			begin := tt.begin
			if begin.IsZero() {
				begin = time.Now()
			}

			gl.Trace(context.Background(), begin, func() (string, int64) { return tt.sql, tt.rows }, tt.err)

			logs := recorded.All()
			if tt.wantMsg == "" {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
			assert.Equal(t, tt.wantLvl, logs[0].Level)
			assert.Equal(t, tt.rows, logs[0].ContextMap()["rows"])
			if tt.conflict {
				assert.Equal(t, true, logs[0].ContextMap()["conflict"])
			}
		})
	}
}

func TestGormLogger_TraceCarriesContextFields(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)
	ctx := WithResidentID(WithPropertyID(context.WithValue(context.Background(), requestIDKey, "req-1"), "prop-1"), "tenant-1")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "prop-1", fields["property_id"])
	assert.Equal(t, "tenant-1", fields["resident_id"])
}

func TestIsVersionedUpdate(t *testing.T) {
	assert.True(t, isVersionedUpdate(`UPDATE tenants SET status='Vacated' WHERE id = 1 AND version = 2`))
	assert.False(t, isVersionedUpdate(`UPDATE tenants SET version = 3 WHERE id = 1`))
	assert.False(t, isVersionedUpdate(`SELECT version FROM tenants WHERE version = 2`))
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"DEBUG":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(in), in)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
