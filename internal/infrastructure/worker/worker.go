package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/questmaster/core/internal/infrastructure/logger"
)

// TickFunc is one unit of periodic work. Errors are logged, never fatal;
// the next tick retries naturally.
type TickFunc func(ctx context.Context) error

// Worker drives periodic jobs on a cron schedule. Jobs are chained with
// SkipIfStillRunning so a slow tick is never overlapped by the next one;
// each tick runs to completion before another may start.
type Worker struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// New creates a worker in the given location.
func New(loc *time.Location, log *logger.Logger) *Worker {
	return &Worker{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: log,
	}
}

// AddInterval registers a job every given duration.
func (w *Worker) AddInterval(name string, interval time.Duration, tick TickFunc) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}

	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)

	return w.cron.AddFunc(spec, func() {
		if err := tick(context.Background()); err != nil {
			w.logger.Errorw("Worker tick failed", "job", name, "error", err)
		}
	})
}

// Start launches the scheduler in its own goroutine.
func (w *Worker) Start() {
	w.cron.Start()
}

// Stop halts scheduling and waits for a running tick to finish.
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}
