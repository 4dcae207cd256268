package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func stopJob(t *testing.T, job *PeriodicJob) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, job.Stop(ctx))
}

func TestPeriodicJob_StartStop(t *testing.T) {
	t.Run("disabled job does not start", func(t *testing.T) {
		job := NewPeriodicJob("test", JobConfig{Enabled: false, Interval: time.Hour}, func(context.Context) (int, error) {
			return 0, nil
		}, nil)

		require.NoError(t, job.Start(context.Background()))
		assert.False(t, job.IsRunning())
		assert.ErrorIs(t, job.TriggerNow(), ErrSchedulerNotRunning)
	})

	t.Run("second start is rejected", func(t *testing.T) {
		job := NewPeriodicJob("test", JobConfig{Enabled: true, Interval: time.Hour}, func(context.Context) (int, error) {
			return 0, nil
		}, nil)

		require.NoError(t, job.Start(context.Background()))
		assert.ErrorIs(t, job.Start(context.Background()), ErrSchedulerAlreadyRunning)
		stopJob(t, job)
		assert.False(t, job.IsRunning())
	})

	t.Run("stop on a stopped job is a no-op", func(t *testing.T) {
		job := NewPeriodicJob("test", JobConfig{Enabled: true}, nil, nil)
		assert.NoError(t, job.Stop(context.Background()))
	})
}

func TestPeriodicJob_RunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	job := NewPeriodicJob("tick", JobConfig{Enabled: true, Interval: 10 * time.Millisecond}, func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}, nil)

	require.NoError(t, job.Start(context.Background()))
	defer stopJob(t, job)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestPeriodicJob_FailureIsLoggedAndLoopContinues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var calls atomic.Int32
	job := NewPeriodicJob("flaky", JobConfig{Enabled: true, Interval: time.Hour}, func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("database unavailable")
		}
		return 3, nil
	}, zap.New(core))

	require.NoError(t, job.Start(context.Background()))
	defer stopJob(t, job)

	require.NoError(t, job.TriggerNow())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, failures := job.Stats()
		return failures == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, job.TriggerNow())
	assert.Eventually(t, func() bool {
		runs, _ := job.Stats()
		return runs == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, logs.FilterMessage("Scheduled job run failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Scheduled job run completed").Len())
}

func TestPeriodicJob_PanicIsRecovered(t *testing.T) {
	var calls atomic.Int32
	job := NewPeriodicJob("panicky", JobConfig{Enabled: true, Interval: time.Hour}, func(context.Context) (int, error) {
		calls.Add(1)
		panic("boom")
	}, nil)

	require.NoError(t, job.Start(context.Background()))
	defer stopJob(t, job)

	require.NoError(t, job.TriggerNow())
	assert.Eventually(t, func() bool {
		_, failures := job.Stats()
		return failures == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, job.IsRunning())
}

func TestPeriodicJob_RunTimeout(t *testing.T) {
	deadlineSeen := make(chan bool, 1)
	job := NewPeriodicJob("slow", JobConfig{Enabled: true, Interval: time.Hour, RunTimeout: 20 * time.Millisecond},
		func(ctx context.Context) (int, error) {
			_, ok := ctx.Deadline()
			<-ctx.Done()
			deadlineSeen <- ok
			return 0, ctx.Err()
		}, nil)

	require.NoError(t, job.Start(context.Background()))
	defer stopJob(t, job)

	require.NoError(t, job.TriggerNow())
	select {
	case ok := <-deadlineSeen:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not bounded by the timeout")
	}
}
