package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/loop"
	"github.com/sirupsen/logrus"
)

type WorkerConfig struct {
	// Concurrency is the number of tasks run at once. 1 if not positive.
	Concurrency int

	// PollInterval is the wait after the queue is found empty. 2 seconds if zero.
	PollInterval time.Duration

	// Sweep, if not nil, moves or deletes one left file and reports whether there was one.
	// It is called while the queue is empty.
	Sweep func(context.Context) (bool, error)
}

// Worker claims tasks from the queue of an Orchestrator and runs them.
type Worker struct {
	o    *Orchestrator
	conf WorkerConfig
	log  logrus.FieldLogger
}

func NewWorker(o *Orchestrator, conf WorkerConfig) *Worker {
	if conf.Concurrency < 1 {
		conf.Concurrency = 1
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = 2 * time.Second
	}
	return &Worker{o: o, conf: conf, log: o.log}
}

// RunOnce claims a task and runs it.
//
// It returns false when there are no claimable tasks.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	t, ok, err := w.o.queue.Claim(ctx, w.o.conf.Lease)
	if err != nil || !ok {
		return false, err
	}
	tctx, cancel := context.WithTimeout(ctx, w.o.conf.Lease)
	defer cancel()
	return true, w.o.Run(tctx, t)
}

// Start runs tasks until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	wg := new(sync.WaitGroup)
	errs := make([]error, w.conf.Concurrency)
	for n := range w.conf.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := w.log.WithField("runner", n)
			_, errs[n] = loop.Start(ctx, 0, func(ctx context.Context, processed int) (int, loop.Next) {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					log.WithError(err).Warn("task is not processed")
					return processed, loop.Continue(w.conf.PollInterval)
				}
				if ran {
					return processed + 1, loop.Continue(0)
				}
				if w.conf.Sweep != nil && n == 0 {
					swept, err := w.conf.Sweep(ctx)
					if err != nil {
						log.WithError(err).Warn("garbage is not swept")
					} else if swept {
						return processed, loop.Continue(0)
					}
				}
				return processed, loop.Continue(w.conf.PollInterval)
			})
			log.Debug("runner is stopped")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return nil
}
