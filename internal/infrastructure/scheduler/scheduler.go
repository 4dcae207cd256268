// Package scheduler runs the periodic background jobs of the service: debt
// re-evaluation and the re-check of backordered stock export orders.
// A failed run is logged and the loop keeps going.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RunFunc performs one run of a job and reports how many items it changed
type RunFunc func(ctx context.Context) (int, error)

// JobConfig holds the timing of a periodic job
type JobConfig struct {
	Enabled    bool
	Interval   time.Duration
	RunTimeout time.Duration
}

// PeriodicJob runs a RunFunc on a fixed interval and on demand
type PeriodicJob struct {
	name   string
	config JobConfig
	run    RunFunc
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	trigger   chan struct{}

	runs     atomic.Int64
	failures atomic.Int64
}

// NewPeriodicJob creates a job. Nothing runs until Start.
func NewPeriodicJob(name string, config JobConfig, run RunFunc, logger *zap.Logger) *PeriodicJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	return &PeriodicJob{
		name:    name,
		config:  config,
		run:     run,
		logger:  logger.Named("scheduler").With(zap.String("job", name)),
		trigger: make(chan struct{}, 1),
	}
}

// Name returns the job name
func (j *PeriodicJob) Name() string { return j.name }

// Start launches the loop. A disabled job returns nil without starting.
func (j *PeriodicJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.config.Enabled {
		j.logger.Info("Scheduled job is disabled")
		return nil
	}
	if j.isRunning {
		return ErrSchedulerAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.isRunning = true

	j.wg.Add(1)
	go j.loop(runCtx)

	j.logger.Info("Scheduled job started",
		zap.Duration("interval", j.config.Interval),
		zap.Duration("run_timeout", j.config.RunTimeout))
	return nil
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx
func (j *PeriodicJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	j.cancel()
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Scheduled job stopped")
		return nil
	case <-ctx.Done():
		j.logger.Warn("Scheduled job stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (j *PeriodicJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isRunning
}

// TriggerNow asks for a run without waiting for the next tick. Requests made
// while one is already pending are merged into it.
func (j *PeriodicJob) TriggerNow() error {
	if !j.IsRunning() {
		return ErrSchedulerNotRunning
	}
	select {
	case j.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Stats returns the number of completed and failed runs
func (j *PeriodicJob) Stats() (runs, failures int64) {
	return j.runs.Load(), j.failures.Load()
}

func (j *PeriodicJob) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx, "interval")
		case <-j.trigger:
			j.runOnce(ctx, "trigger")
		}
	}
}

func (j *PeriodicJob) runOnce(ctx context.Context, reason string) {
	runCtx := ctx
	if j.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.config.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	changed, err := j.safeRun(runCtx)
	j.runs.Add(1)
	if err != nil {
		j.failures.Add(1)
		j.logger.Error("Scheduled job run failed",
			zap.String("reason", reason),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	j.logger.Info("Scheduled job run completed",
		zap.String("reason", reason),
		zap.Int("changed", changed),
		zap.Duration("duration", time.Since(start)))
}

func (j *PeriodicJob) safeRun(ctx context.Context) (changed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("Scheduled job panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = errPanicked
		}
	}()
	return j.run(ctx)
}
