package services

import (
	"github.com/sjperalta/insurance-api/internal/jobs"
)

type JobService struct {
	worker *jobs.Worker
}

func NewJobService(worker *jobs.Worker) *JobService {
	return &JobService{
		worker: worker,
	}
}

// GetStatus reports the worker pool. Without a worker, jobs run inline and
// there is nothing to report.
func (s *JobService) GetStatus() map[string]interface{} {
	if s.worker == nil {
		return map[string]interface{}{"mode": "inline"}
	}
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"finished_jobs":  stats.FinishedJobs,
		"failed_jobs":    stats.FailedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
		"cron_entries":   stats.CronEntries,
		"mode":           "pool",
	}
}
