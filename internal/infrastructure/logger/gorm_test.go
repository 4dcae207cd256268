package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	stmt := func() (string, int64) { return `UPDATE "lots" SET remaining_quantity = 4`, 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
		wantSQL   bool
	}{
		{"error is logged with sql", gormlogger.Warn, time.Now(), errors.New("boom"), "sql error", zapcore.ErrorLevel, true},
		{"record not found is silent", gormlogger.Warn, time.Now(), gormlogger.ErrRecordNotFound, "", 0, false},
		{"slow query warns", gormlogger.Warn, time.Now().Add(-time.Second), nil, "slow sql", zapcore.WarnLevel, false},
		{"fast query at info is debug", gormlogger.Info, time.Now(), nil, "sql", zapcore.DebugLevel, false},
		{"silent logs nothing", gormlogger.Silent, time.Now(), errors.New("boom"), "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, WithSlowThreshold(100*time.Millisecond))

			gl.Trace(context.Background(), tt.begin, stmt, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			entries := logs.FilterMessage(tt.wantMsg).All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tt.wantLevel, entries[0].Level)
				_, hasSQL := entries[0].ContextMap()["sql"]
				assert.Equal(t, tt.wantSQL, hasSQL)
			}
		})
	}
}

func TestGormLogger_FullSQL(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithFullSQL(true))

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	assert.Equal(t, "SELECT 1", logs.All()[0].ContextMap()["sql"])
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	switched := gl.LogMode(gormlogger.Info).(*GormLogger)
	assert.Equal(t, gormlogger.Info, switched.level)
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("whatever"))
}
