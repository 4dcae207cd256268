package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()

	t.Run("tracer falls back to the global provider", func(t *testing.T) {
		tp, err := NewTracerProvider(ctx, Config{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, tp.IsEnabled())
		assert.NotNil(t, tp.Provider())
		assert.NoError(t, tp.Shutdown(ctx))
	})

	t.Run("log bridge is the identity", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, nil)
		require.NoError(t, err)
		assert.False(t, lp.IsEnabled())

		bridged := lp.Bridge(base)
		assert.Same(t, base, bridged)
		bridged.Info("lot received")
		assert.Equal(t, 1, logs.Len())
		assert.NoError(t, lp.Shutdown(ctx))
	})

	t.Run("profiler stops twice", func(t *testing.T) {
		p, err := NewProfiler(ProfilerConfig{Enabled: false}, nil)
		require.NoError(t, err)
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("enabled profiler needs a server", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "pms"}, nil)
		assert.Error(t, err)
	})
}

func TestAtLeast(t *testing.T) {
	t.Run("drops entries below the export level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		log := zap.New(atLeast(core, zapcore.WarnLevel)).With(zap.String("gateway_ref", "GW-1"))

		log.Info("payment applied")
		log.Warn("payment exceeds outstanding balance")

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, "GW-1", entry.ContextMap()["gateway_ref"])
	})

	t.Run("keeps a stricter core", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		log := zap.New(atLeast(core, zapcore.InfoLevel))

		log.Warn("lot near expiry")
		log.Error("lot deduction failed")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		root  string
	}{
		{1, "root:AlwaysOnSampler"},
		{2, "root:AlwaysOnSampler"},
		{0, "root:AlwaysOffSampler"},
		{-1, "root:AlwaysOffSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			desc := samplerFor(tt.ratio).Description()
			assert.True(t, strings.HasPrefix(desc, "ParentBased{"))
			assert.Contains(t, desc, tt.root)
		})
	}
}
