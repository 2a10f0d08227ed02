package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/metrics"
)

// ErrQueueClosed is returned when a task is submitted while the queue
// worker is not running.
var ErrQueueClosed = errors.New("task queue closed")

type outcome struct {
	result Result
	err    error
}

type submission struct {
	descriptor *Descriptor
	chanResult chan outcome
}

type (
	// Queue executes catalog tasks one at a time. Submit is a
	// rendezvous: the caller hands its response channel to the worker
	// and blocks until that exact submission has produced its one
	// result. The queue itself never retries and never reorders an
	// in-flight submission's response onto another caller.
	Queue struct {
		l              *zap.Logger
		executor       Executor
		submitChannel  chan *submission
		workerDoneChan chan struct{}
	}
	QueueOption func(*Queue)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewQueue(l *zap.Logger, executor Executor, opts ...QueueOption) *Queue {
	inst := &Queue{
		l:              l.Named("queue"),
		executor:       executor,
		submitChannel:  make(chan *submission),
		workerDoneChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Run is the single worker routine. Exactly one Run must be active per
// queue, it drains submissions until the context is done.
func (q *Queue) Run(ctx context.Context) error {
	l := q.l.Named("routine.worker")
	defer close(q.workerDoneChan)
	for {
		select {
		case <-ctx.Done():
			l.Debug("routine canceled", zap.Error(ctx.Err()))
			return nil
		case sub := <-q.submitChannel:
			start := time.Now()
			l := l.With(
				zap.String("run_id", uuid.New().String()),
				zap.String("task_id", sub.descriptor.ID.String()),
				zap.String("kind", string(sub.descriptor.Kind)),
				zap.String("backup", sub.descriptor.Backup.ID),
			)

			l.Debug("task started")
			result, err := q.executor.Execute(context.WithoutCancel(ctx), sub.descriptor)
			if err != nil {
				l.Error("task failed", zap.Error(err))
				metrics.TasksFailedCounter.WithLabelValues(string(sub.descriptor.Kind)).Inc()
			} else {
				l.Debug("task success")
				metrics.TasksCompletedCounter.WithLabelValues(string(sub.descriptor.Kind)).Inc()
			}
			metrics.TaskDuration.WithLabelValues(string(sub.descriptor.Kind)).Observe(time.Since(start).Seconds())

			sub.chanResult <- outcome{result: result, err: err}
		}
	}
}

// Submit hands a descriptor to the worker and blocks until its result
// arrives. Cancellation of ctx abandons the wait, not the task - once
// the worker picked the submission up it runs to completion.
func (q *Queue) Submit(ctx context.Context, d *Descriptor) (Result, error) {
	sub := &submission{
		descriptor: d,
		// buffered so an abandoned wait cannot block the worker
		chanResult: make(chan outcome, 1),
	}

	select {
	case q.submitChannel <- sub:
	case <-q.workerDoneChan:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-sub.chanResult:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
