// Package besteffort runs independent housekeeping tasks concurrently. Every
// task is attempted, failures are logged and reported back as outcomes, and
// nothing is propagated: callers may discard the result.
package besteffort

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one named unit of housekeeping.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome records how a task finished.
type Outcome struct {
	Name string
	Err  error
}

// Outcomes is index-aligned with the tasks passed to Run.
type Outcomes []Outcome

// Failed returns the outcomes that carry an error.
func (o Outcomes) Failed() Outcomes {
	var failed Outcomes
	for _, item := range o {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Run starts every task concurrently and waits for all of them. A failing or
// panicking task never stops its siblings.
func Run(ctx context.Context, logger *zap.Logger, tasks ...Task) Outcomes {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	outcomes := make(Outcomes, len(tasks))
	var group errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		outcomes[i].Name = task.Name
		group.Go(func() error {
			err := runOne(ctx, task)
			outcomes[i].Err = err
			if err != nil {
				logger.Warn("best-effort task failed", zap.String("task", task.Name), zap.Error(err))
			} else {
				logger.Debug("best-effort task finished", zap.String("task", task.Name))
			}
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

func runOne(ctx context.Context, task Task) (err error) {
	if task.Run == nil {
		return fmt.Errorf("besteffort: task %s has no body", task.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("besteffort: task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
