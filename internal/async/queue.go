package async

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/pipeline"
)

// Job is one queued upload awaiting background processing.
type Job struct {
	TraceID     string
	UserID      string
	Filename    string
	ContentType string
	Data        []byte
	SubmittedAt time.Time
}

// UploadQueue feeds queued uploads through the pipeline on a fixed pool of
// workers. Batch endpoints enqueue and return 202; failures are logged, not
// surfaced to the submitter.
type UploadQueue struct {
	proc    *pipeline.Processor
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*UploadQueue)

func WithWorkers(n int) Option {
	return func(q *UploadQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *UploadQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *UploadQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewUploadQueue(proc *pipeline.Processor, logger *zap.Logger, opts ...Option) *UploadQueue {
	q := &UploadQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *UploadQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("upload worker started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.proc.Process(ctx, pipeline.Upload{
						UserID:      job.UserID,
						Filename:    job.Filename,
						ContentType: job.ContentType,
						Data:        job.Data,
					})
					cancel()

					if err != nil {
						q.logger.Error("background processing failed",
							zap.Int("worker_id", workerID),
							zap.String("trace_id", job.TraceID),
							zap.String("filename", job.Filename),
							zap.Error(err))
						continue
					}
					q.logger.Info("background upload processed",
						zap.Int("worker_id", workerID),
						zap.String("trace_id", job.TraceID),
						zap.String("receipt_id", res.Record.ReceiptID),
						zap.Duration("queued_for", time.Since(job.SubmittedAt)))
				}

				q.logger.Info("upload worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

// Enqueue hands a job to the worker pool. Blocks when the buffer is full,
// which pushes backpressure up to the HTTP handler.
func (q *UploadQueue) Enqueue(_ context.Context, job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("rejecting enqueue during shutdown", zap.String("filename", job.Filename))
		return false
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("upload queue full, applying backpressure", zap.String("filename", job.Filename))
		q.ch <- job
	}
	return true
}

// Depth reports the number of jobs waiting in the buffer.
func (q *UploadQueue) Depth() int {
	return len(q.ch)
}

// Shutdown stops intake and waits for in-flight jobs until ctx expires.
func (q *UploadQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue shutdown interrupted by context")
	case <-done:
		q.logger.Info("upload queue drained")
	}
}
