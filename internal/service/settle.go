package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// settleAll runs every task concurrently and waits for all of them.
// Each task's error (or recovered panic) lands in its own slot of the
// returned slice; no task's failure cancels or short-circuits a sibling.
func settleAll(ctx context.Context, tasks []func(context.Context) error) []error {
	errs := make([]error, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			errs[i] = task(ctx)
			return nil
		})
	}
	_ = g.Wait() // tasks always return nil; outcomes are in errs
	return errs
}
