package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs notification jobs on a bounded pool and owns the cron scheduler
// for the periodic jobs (cheque reminders, policy expiry).
type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan Job
	asyncSem chan struct{}
	cron     *cron.Cron
	closed   bool
	closeMu  sync.RWMutex

	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int      `json:"active_jobs"`
	FinishedJobs  int64    `json:"finished_jobs"`
	FailedJobs    int64    `json:"failed_jobs"`
	QueueLength   int      `json:"queue_length"`
	MaxConcurrent int      `json:"max_concurrent"`
	CronEntries   []string `json:"cron_entries"`
}

// NewWorker creates a worker with numWorkers queue processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan Job, 100),
		asyncSem:      make(chan struct{}, asyncLimit),
		cron:          cron.New(),
		maxConcurrent: asyncLimit,
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
	w.cron.Start()

	return w
}

// Enqueue adds a job to the pool. A full queue runs the job inline.
func (w *Worker) Enqueue(job Job) {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		logger.Warn("worker closed, dropping job")
		return
	}

	select {
	case w.queue <- job:
	default:
		logger.Warn("worker queue full, running job inline")
		w.run("inline", job)
	}
}

// EnqueueAsync runs a job in its own goroutine, bounded by a semaphore
func (w *Worker) EnqueueAsync(job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()
		w.run("async", job)
	}()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	name := fmt.Sprintf("pool-%d", workerID)
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.run(name, job)
		}
	}
}

// ScheduleEvery runs a job at fixed intervals, first run after one interval
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(name, job)
			}
		}
	}()
}

// ScheduleCron registers a job under a standard five-field cron expression
func (w *Worker) ScheduleCron(name, spec string, job Job) error {
	_, err := w.cron.AddFunc(spec, func() {
		w.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, name, err)
	}

	w.statsMu.Lock()
	w.stats.CronEntries = append(w.stats.CronEntries, name+" "+spec)
	w.statsMu.Unlock()

	logger.Info("scheduled cron job", "job", name, "spec", spec)
	return nil
}

// run executes a job with panic recovery and stats tracking
func (w *Worker) run(name string, job Job) {
	w.trackJobStart()
	start := time.Now()
	failed := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panic", "job", name, "panic", r)
			failed = true
		}
		w.trackJobEnd(failed)
	}()

	if err := job(w.ctx); err != nil {
		logger.Error("job failed", "job", name, "error", err)
		failed = true
		return
	}
	logger.Debug("job completed", "job", name, "elapsed", time.Since(start))
}

// Shutdown stops the scheduler and waits for in-flight jobs
func (w *Worker) Shutdown() {
	cronCtx := w.cron.Stop()
	<-cronCtx.Done()

	w.closeMu.Lock()
	w.closed = true
	close(w.queue)
	w.closeMu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.CronEntries = append([]string(nil), w.stats.CronEntries...)
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// FinishedJobs counts successes and failures; FailedJobs is a subset
func (w *Worker) trackJobEnd(failed bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.FinishedJobs++
	if failed {
		w.stats.FailedJobs++
	}
}
