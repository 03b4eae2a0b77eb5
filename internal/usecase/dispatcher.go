package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/metrics"
)

// ErrQueueFull is returned by Submit when no more jobs can be buffered.
var ErrQueueFull = errors.New("dispatch queue is full")

// ErrDispatcherClosed is returned by Submit after Run has returned.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Job is a unit of background work. It is retried while it returns an error.
type Job func(ctx context.Context) error

type queuedJob struct {
	id      string
	name    string
	run     Job
	retries int
}

// DispatcherConfig bounds the background work.
type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Timeout    time.Duration
	Backoff    time.Duration
}

// Dispatcher runs jobs after the inbound request has been acknowledged.
type Dispatcher struct {
	cfg     DispatcherConfig
	queue   chan queuedJob
	metrics *metrics.Recorder
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher; call Run to start its workers.
func NewDispatcher(cfg DispatcherConfig, rec *metrics.Recorder, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		queue:   make(chan queuedJob, cfg.QueueSize),
		metrics: rec,
		logger:  logger,
	}
}

// Submit enqueues a job without blocking and returns its id.
func (d *Dispatcher) Submit(name string, job Job) (string, error) {
	return d.enqueue(name, job, d.cfg.MaxRetries)
}

// SubmitOnce enqueues a job that is never retried, for work with side
// effects that must not be repeated.
func (d *Dispatcher) SubmitOnce(name string, job Job) (string, error) {
	return d.enqueue(name, job, 0)
}

func (d *Dispatcher) enqueue(name string, job Job, retries int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrDispatcherClosed
	}
	q := queuedJob{id: uuid.NewString(), name: name, run: job, retries: retries}
	select {
	case d.queue <- q:
		d.metrics.SetQueueDepth(len(d.queue))
		return q.id, nil
	default:
		d.metrics.ObserveJob("dropped")
		d.logger.Warn("Dropping job, queue is full", zap.String("job", name))
		return "", ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done. Jobs already queued
// are drained before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range d.queue {
				d.metrics.SetQueueDepth(len(d.queue))
				d.execute(q)
			}
		}()
	}

	<-ctx.Done()
	d.mu.Lock()
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	wg.Wait()
	return nil
}

// execute runs q with its own timeout, detached from any request context.
func (d *Dispatcher) execute(q queuedJob) {
	logger := d.logger.With(zap.String("job", q.name), zap.String("job_id", q.id))
	var err error
	for attempt := 0; attempt <= q.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * d.cfg.Backoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		err = q.run(ctx)
		cancel()
		if err == nil {
			d.metrics.ObserveJob("delivered")
			logger.Debug("Job completed", zap.Int("attempt", attempt+1))
			return
		}
		logger.Warn("Job attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	d.metrics.ObserveJob("failed")
	logger.Error("Job failed after retries", zap.Error(err))
}
