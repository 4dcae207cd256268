package scheduler

import "errors"

// ErrSchedulerNotRunning is returned when a run is triggered on a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ErrSchedulerAlreadyRunning is returned by Start on a running scheduler
var ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

var errPanicked = errors.New("scheduled job panicked")
