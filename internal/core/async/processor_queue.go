package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("processor queue is shutting down")

// Job is one file waiting for background processing.
type Job struct {
	Path        string
	RequestID   string
	SubmittedAt time.Time
}

// FileProcessor is the part of core.Processor the queue drives.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, opts core.FileOptions) (entity.DocumentResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	metrics *metrics.Metrics
	workers int
	timeout time.Duration
	onDone  func(Job, entity.DocumentResult, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *ProcessorQueue) { q.metrics = m }
}

// WithResultHook is called by the worker after every job.
func WithResultHook(fn func(Job, entity.DocumentResult, error)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.metrics.SetQueueDepth(len(q.ch))
					ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
					if job.RequestID != "" {
						ctx = common.WithRequestID(ctx, job.RequestID)
					}
					res, err := q.proc.ProcessFile(ctx, job.Path, core.FileOptions{ProcessType: constants.ProcessSingle})
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "request_id", job.RequestID, "error", err)
					} else {
						q.logger.Info("processed file",
							"worker_id", workerID,
							"path", job.Path,
							"request_id", job.RequestID,
							"status", res.ProcessingStatus,
							"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
						)
					}
					if q.onDone != nil {
						q.onDone(job, res, err)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue hands job to the workers. When the buffer is full it blocks until
// there is room or ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.Path, "request_id", job.RequestID)
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Path)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.metrics.SetQueueDepth(len(q.ch))
	return nil
}

// Len is the number of jobs waiting for a worker.
func (q *ProcessorQueue) Len() int { return len(q.ch) }

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
