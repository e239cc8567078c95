package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// JanitorTask is one periodic cleanup step.
type JanitorTask struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Janitor runs cleanup tasks on a fixed interval until its context ends.
// Correctness never depends on it; stores also expire entries lazily.
type Janitor struct {
	interval time.Duration
	tasks    []JanitorTask
	logger   *zap.Logger
}

// NewJanitor constructs a Janitor. A non-positive interval defaults to five minutes.
func NewJanitor(interval time.Duration, log *zap.Logger, tasks ...JanitorTask) *Janitor {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{interval: interval, tasks: tasks, logger: log}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes every task a single time.
func (j *Janitor) RunOnce(ctx context.Context) {
	for _, task := range j.tasks {
		removed, err := task.Run(ctx)
		if err != nil {
			j.logger.Warn("janitor task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		if removed > 0 {
			j.logger.Debug("janitor task completed", zap.String("task", task.Name), zap.Int("removed", removed))
		}
	}
}
