package tool

import (
	"context"
	"fmt"
)

// Task is one unit of preparation work, derived from a tool declaration.
// Run is nil when the tool's provider has no preparation hook; such tasks
// settle as immediate successes.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunSequential executes tasks strictly in order: a task starts only after
// the previous one has settled. Each settled task is routed synchronously
// to onSuccess or onFailure. A task error or panic is contained and never
// stops the remaining sequence; only context cancellation aborts it, and
// the context error is returned to the caller.
func RunSequential(ctx context.Context, tasks []Task, onSuccess func(name string), onFailure func(name string, err error)) error {
	if onSuccess == nil {
		onSuccess = func(string) {}
	}
	if onFailure == nil {
		onFailure = func(string, error) {}
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if task.Run == nil {
			onSuccess(task.Name)
			continue
		}

		if err := runTask(ctx, task); err != nil {
			onFailure(task.Name, err)
		} else {
			onSuccess(task.Name)
		}
	}
	return nil
}

// runTask invokes a task with panic recovery.
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prepare panic: %v", r)
		}
	}()
	return task.Run(ctx)
}
