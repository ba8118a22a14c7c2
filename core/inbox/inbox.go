// Package inbox implements the single-consumer update queue shared by
// Telegram updates and 1Shot webhook events. Jobs run one at a time in the
// order they were accepted.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/tokenbot/core/logger"
)

var (
	// ErrQueueClosed is returned once the consumer has stopped.
	ErrQueueClosed = errors.New("inbox: queue closed")
	// ErrQueueFull is returned by Enqueue when no slot is free.
	ErrQueueFull = errors.New("inbox: queue full")
)

const defaultSize = 128

type job struct {
	ctx      context.Context
	name     string
	run      func(ctx context.Context) error
	accepted time.Time
	done     chan error
}

// Queue is a bounded FIFO drained by exactly one goroutine (Run).
type Queue struct {
	jobs chan job
	stop chan struct{}
	once sync.Once

	running   atomic.Bool
	processed atomic.Uint64
	failed    atomic.Uint64
}

// New returns a queue holding at most size pending jobs.
func New(size int) *Queue {
	if size <= 0 {
		size = defaultSize
	}
	return &Queue{
		jobs: make(chan job, size),
		stop: make(chan struct{}),
	}
}

// Run consumes jobs until ctx is done. Jobs still pending at that point are
// dropped and their waiters receive ErrQueueClosed.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return errors.New("inbox: consumer already running")
	}
	defer q.close()

	logger.Info(ctx, "inbox", "consumer.start", slog.Int("size", cap(q.jobs)))
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "inbox", "consumer.stop",
				slog.Int("queue_depth", len(q.jobs)),
				slog.Uint64("processed", q.processed.Load()),
				slog.Uint64("failed", q.failed.Load()),
			)
			return nil
		case j := <-q.jobs:
			q.exec(j)
		}
	}
}

// Enqueue schedules fn without waiting for it. The job keeps ctx values but
// not its cancellation, so it outlives the request that produced it.
func (q *Queue) Enqueue(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	_, err := q.push(ctx, name, fn, false)
	return err
}

// Do schedules fn and blocks until it has run, returning its error.
func (q *Queue) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	done, err := q.push(ctx, name, fn, true)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-q.stop:
		// the consumer may have finished this job right before stopping
		select {
		case err := <-done:
			return err
		default:
			return ErrQueueClosed
		}
	}
}

// Depth reports the number of pending jobs.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Processed reports how many jobs have run.
func (q *Queue) Processed() uint64 {
	return q.processed.Load()
}

func (q *Queue) push(ctx context.Context, name string, fn func(ctx context.Context) error, wait bool) (chan error, error) {
	if fn == nil {
		return nil, errors.New("inbox: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-q.stop:
		return nil, ErrQueueClosed
	default:
	}

	j := job{
		ctx:      context.WithoutCancel(ctx),
		name:     name,
		run:      fn,
		accepted: time.Now(),
	}
	if wait {
		j.ctx = ctx
		j.done = make(chan error, 1)
		select {
		case q.jobs <- j:
			return j.done, nil
		case <-q.stop:
			return nil, ErrQueueClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case q.jobs <- j:
		return nil, nil
	default:
		logger.Warn(ctx, "inbox", "job.rejected",
			slog.String("job", name),
			slog.String("reason", "full"),
			slog.Int("queue_depth", len(q.jobs)),
		)
		return nil, ErrQueueFull
	}
}

func (q *Queue) exec(j job) {
	start := time.Now()
	err := runSafe(j)
	q.processed.Add(1)
	if err != nil {
		q.failed.Add(1)
	}
	if j.done != nil {
		j.done <- err
	}

	attrs := []slog.Attr{
		slog.String("job", j.name),
		slog.String("status", logger.Status(err)),
		slog.Int64("wait_ms", logger.RoundMS(start.Sub(j.accepted)).Milliseconds()),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		slog.Int("queue_depth", len(q.jobs)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Debug(j.ctx, "inbox", "job.done", attrs...)
}

func runSafe(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(j.ctx, "inbox", "job.panic",
				slog.String("job", j.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("inbox: job %s panicked: %v", j.name, r)
		}
	}()
	return j.run(j.ctx)
}

func (q *Queue) close() {
	q.once.Do(func() { close(q.stop) })
}
