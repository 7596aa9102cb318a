package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/resilience"
)

// TaskStatus is the state a task-polling provider reports for a job.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ProviderTask is a remote generation job being polled.
type ProviderTask struct {
	ID            string
	Status        TaskStatus
	PollStartedAt time.Time
}

// PollConfig bounds a polling loop.
type PollConfig struct {
	// Timeout is the number of status checks, one per Interval.
	Timeout  int
	Interval time.Duration
	Sleep    resilience.SleepFunc
	// Describe renders poll errors for the log. Defaults to errors.Describe.
	Describe func(error) string
}

func (c *PollConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Sleep == nil {
		c.Sleep = resilience.Sleep
	}
	if c.Describe == nil {
		c.Describe = errors.Describe
	}
}

// Poll checks task until it completes, fails or Timeout checks have been
// made. It returns the completed value and true. A failed task and a
// timeout both return false with a nil error. Errors from check are logged
// and returned without further polling.
func Poll[T any](ctx context.Context, log *logger.Logger, task *ProviderTask, cfg PollConfig, check func(ctx context.Context) (TaskStatus, T, error)) (T, bool, error) {
	cfg.applyDefaults()
	var zero T

	task.Status = TaskPending
	task.PollStartedAt = time.Now()
	log.Info("wait for image", logger.Fields("task_id", task.ID))

	for i := 0; i < cfg.Timeout; i++ {
		status, v, err := check(ctx)
		if err != nil {
			log.Error("wait for image: " + cfg.Describe(err))
			return zero, false, err
		}
		if i == cfg.Timeout/2 {
			log.Info("still waiting")
		}

		task.Status = status
		switch status {
		case TaskFailed:
			log.Error("failed to generate image", logger.Fields("task_id", task.ID))
			return zero, false, nil
		case TaskCompleted:
			return v, true, nil
		}

		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return zero, false, err
		}
	}
	log.Warn(fmt.Sprintf("image was not generated after %d seconds", int(time.Duration(cfg.Timeout)*cfg.Interval/time.Second)))
	return zero, false, nil
}
