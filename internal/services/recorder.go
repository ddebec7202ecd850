package services

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/jobs"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// changeRecorder runs the side effects of a committed mutation: audit row,
// dashboard cache invalidation and the domain event.
type changeRecorder struct {
	audit     *AuditService
	cache     cache.Cache
	publisher events.Publisher
	worker    *jobs.Worker
}

func (r *changeRecorder) record(ctx context.Context, actor Actor, action, entity string, entityID uint, details string, event *events.Event) {
	if err := r.audit.Log(ctx, actor, action, entity, entityID, details); err != nil {
		logger.Error("failed to write audit log", "entity", entity, "entity_id", entityID, "error", err)
	}
	r.invalidateDashboard(ctx)
	if event != nil {
		r.publish(*event)
	}
}

func (r *changeRecorder) invalidateDashboard(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, cache.KeyDashboardStatistics); err != nil {
		logger.Warn("failed to invalidate dashboard cache", "error", err)
	}
	if err := r.cache.DeletePattern(ctx, cache.KeyDashboardOverview); err != nil {
		logger.Warn("failed to invalidate dashboard cache", "error", err)
	}
}

// publish is fire-and-forget; a broker outage never fails the request
func (r *changeRecorder) publish(event events.Event) {
	if r.publisher == nil {
		return
	}
	job := func(ctx context.Context) error {
		if err := r.publisher.Publish(ctx, event); err != nil {
			logger.Error("failed to publish event", "type", event.Type, "entity_id", event.EntityID, "error", err)
		}
		return nil
	}
	if r.worker == nil {
		_ = job(context.Background())
		return
	}
	r.worker.EnqueueAsync(job)
}

// async runs a notification job on the worker pool
func (r *changeRecorder) async(job jobs.Job) {
	if r.worker == nil {
		if err := job(context.Background()); err != nil {
			logger.Error("notification job failed", "error", err)
		}
		return
	}
	r.worker.EnqueueAsync(job)
}
