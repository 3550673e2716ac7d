package async

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently with at most limit tasks in
// flight. A limit <= 0 runs every task at once. A failing task does not
// cancel its siblings; all errors are returned joined, each prefixed with
// its task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "cluster-a", Func: createA},
//	    {Name: "cluster-b", Func: createB},
//	}
//	if err := RunParallel(ctx, tasks, 2); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	errs := make([]error, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
