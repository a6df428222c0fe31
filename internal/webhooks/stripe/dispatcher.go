package stripewebhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/shopcore-backend/pkg/logger"
)

const defaultTaskTimeout = 30 * time.Second

// Task is work that outlives the request that scheduled it.
type Task struct {
	Name   string
	Fields map[string]any
	Run    func(ctx context.Context) error
	// OnFailure runs after Run returns an error or panics.
	OnFailure func(ctx context.Context, err error)
}

// Dispatcher runs tasks on their own goroutine, detached from the caller's
// cancellation but bounded by a timeout. Wait blocks until in-flight tasks end.
type Dispatcher struct {
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, logg *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &Dispatcher{timeout: timeout, logg: logg}
}

// Go schedules task. Values carried by ctx (request id, logger fields) are
// kept; its deadline and cancellation are not.
func (d *Dispatcher) Go(ctx context.Context, task Task) {
	if task.Run == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	detached = d.logg.WithField(detached, "task", task.Name)
	if len(task.Fields) > 0 {
		detached = d.logg.WithFields(detached, task.Fields)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		runCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		if err := d.run(runCtx, task); err != nil {
			d.logg.Error(detached, "detached task failed", err)
			if task.OnFailure != nil {
				task.OnFailure(detached, err)
			}
			return
		}
		d.logg.Debug(detached, "detached task completed")
	}()
}

// Wait blocks until every scheduled task has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
