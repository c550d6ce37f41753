package worker

import (
	"context"
	"fmt"
	"time"
)

// Task is one unit of work, e.g. solving every trial of one day
type Task struct {
	ID      int
	Fn      func(ctx context.Context) error
	Timeout time.Duration
}

// Result reports how a task finished
type Result struct {
	ID       int
	Err      error
	Duration time.Duration
}

// Worker pulls tasks until the task channel is closed
type Worker struct {
	id       int
	ctx      context.Context
	taskCh   <-chan Task
	resultCh chan<- Result
}

func newWorker(ctx context.Context, id int, taskCh <-chan Task, resultCh chan<- Result) *Worker {
	return &Worker{
		id:       id,
		ctx:      ctx,
		taskCh:   taskCh,
		resultCh: resultCh,
	}
}

// Run executes tasks in order of arrival. A task whose context is already
// done is reported with the context error without running.
func (w *Worker) Run() {
	for task := range w.taskCh {
		start := time.Now()
		err := w.execute(task)
		w.resultCh <- Result{ID: task.ID, Err: err, Duration: time.Since(start)}
	}
}

func (w *Worker) execute(task Task) (err error) {
	ctx := w.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: task %d panicked: %v", w.id, task.ID, r)
		}
	}()
	return task.Fn(ctx)
}
