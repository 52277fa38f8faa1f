package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueStopped is returned by Stop when it is called twice
var ErrQueueStopped = errors.New("queue already stopped")

// Job is a detached unit of work. Run receives a context that is independent
// of the request that submitted it.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config controls queue capacity and the per-job failure policy
type Config struct {
	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Queue runs submitted jobs on a fixed pool of goroutines.
// Failures are logged and never propagated to the submitter.
type Queue struct {
	cfg  Config
	jobs chan Job
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewQueue creates a queue. Call Start before submitting jobs.
func NewQueue(cfg Config, log zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		log:    log.With().Str("component", "worker").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.loop()
	}
	q.log.Info().Int("workers", q.cfg.Workers).Int("queue_size", q.cfg.QueueSize).Msg("Background queue started")
}

// Submit enqueues a job without blocking. It returns false when the queue is
// full or stopped; the job is dropped in that case.
func (q *Queue) Submit(job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		q.log.Warn().Str("job", job.Name).Msg("Queue stopped, dropping job")
		return false
	}

	select {
	case q.jobs <- job:
		return true
	default:
		q.log.Warn().Str("job", job.Name).Msg("Queue full, dropping job")
		return false
	}
}

// Stop stops accepting jobs and waits for queued jobs to drain. If ctx expires
// first, in-flight jobs are cancelled and Stop returns without waiting for them.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	q.stopped = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		q.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("queue drain interrupted: %w", ctx.Err())
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.execute(job)
	}
}

func (q *Queue) execute(job Job) {
	log := q.log.With().Str("job", job.Name).Logger()

	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		err := q.runOnce(job)
		if err == nil {
			log.Debug().Int("attempt", attempt).Msg("Job completed")
			return
		}

		log.Error().Err(err).Int("attempt", attempt).Int("max_attempts", q.cfg.MaxAttempts).Msg("Job failed")
		if attempt == q.cfg.MaxAttempts {
			return
		}

		select {
		case <-time.After(q.cfg.RetryDelay):
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) runOnce(job Job) (err error) {
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return job.Run(ctx)
}
