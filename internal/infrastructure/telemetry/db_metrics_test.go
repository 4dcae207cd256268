package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type probe struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func openSQLite(t *testing.T, plugins ...gorm.Plugin) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&probe{}))
	for _, p := range plugins {
		require.NoError(t, db.Use(p))
	}
	return db
}

func TestDBMetrics_RecordsQueries(t *testing.T) {
	reader, mp := newTestMeter(t)
	metrics, err := telemetry.NewDBMetrics(mp.Meter("db.client"), telemetry.DBMetricsConfig{}, nil)
	require.NoError(t, err)

	db := openSQLite(t, metrics)
	ctx := context.Background()

	require.NoError(t, db.WithContext(ctx).Create(&probe{ID: "a", Name: "first"}).Error)
	var got probe
	require.NoError(t, db.WithContext(ctx).First(&got, "id = ?", "a").Error)
	require.NoError(t, db.WithContext(ctx).Model(&got).Update("name", "second").Error)

	assert.Equal(t, int64(1), sumOf(t, reader, "db_query_total", telemetry.AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), sumOf(t, reader, "db_query_total", telemetry.AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), sumOf(t, reader, "db_query_total", telemetry.AttrDBOperation.String("UPDATE")))
}

func TestDBMetrics_SlowQuery(t *testing.T) {
	reader, mp := newTestMeter(t)
	metrics, err := telemetry.NewDBMetrics(mp.Meter("db.client"),
		telemetry.DBMetricsConfig{SlowQueryThreshold: time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "SELECT", "lots", 5*time.Millisecond)
	metrics.RecordQuery(ctx, "SELECT", "", 5*time.Millisecond)
	metrics.RecordQuery(ctx, "", "lots", 0)

	assert.Equal(t, int64(1), sumOf(t, reader, "db_slow_query_total", telemetry.AttrDBTable.String("lots")))
	assert.Equal(t, int64(1), sumOf(t, reader, "db_slow_query_total", telemetry.AttrDBTable.String("unknown")))
	assert.Equal(t, int64(1), sumOf(t, reader, "db_query_total", telemetry.AttrDBOperation.String("UNKNOWN")))
}

func TestDBMetrics_PoolStats(t *testing.T) {
	_, mp := newTestMeter(t)
	metrics, err := telemetry.NewDBMetrics(mp.Meter("db.client"),
		telemetry.DBMetricsConfig{PoolStatsInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	openSQLite(t, metrics)

	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()
	metrics.Stop()
}

func TestDBTracingPlugin(t *testing.T) {
	sr := setupTestTracer(t)
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, nil)
	assert.Equal(t, "db_tracing", plugin.Name())

	db := openSQLite(t, plugin)
	ctx, span := telemetry.StartSpan(context.Background(), "test.parent")
	require.NoError(t, db.WithContext(ctx).Create(&probe{ID: "b", Name: "traced"}).Error)
	span.End()

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "test.parent")
	assert.Greater(t, len(names), 1)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	db := openSQLite(t, telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), nil))

	require.NoError(t, db.Create(&probe{ID: "c", Name: "untraced"}).Error)
	assert.Empty(t, sr.Ended())
}
