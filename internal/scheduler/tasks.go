package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoteldesk/conciergebot/internal/config"
	"github.com/hoteldesk/conciergebot/internal/database"
	"github.com/hoteldesk/conciergebot/internal/session"
)

// TaskDeps contains the dependencies available to scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Registry *session.Registry
	Config   *config.Config
}

// RegisterAllTasks returns the map of all scheduled tasks. Map keys
// match the task names used in the scheduler config section.
func RegisterAllTasks(deps TaskDeps) map[string]TaskFunc {
	tasks := make(map[string]TaskFunc)

	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
	tasks["session_sweep"] = newSessionSweepTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

// newSQLMaintenanceTask creates the task that runs database maintenance.
func newSQLMaintenanceTask(deps TaskDeps) TaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled SQL maintenance task...")
		startTime := time.Now()

		err := deps.Store.RunSQLMaintenance(ctx)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed successfully", "duration", duration)
		return nil
	}
}

// newSessionSweepTask creates the task that evicts idle chat sessions.
// Evicted guests are rebuilt from history on their next message, so the
// sweep only reclaims memory and never loses a selected hotel.
func newSessionSweepTask(deps TaskDeps) TaskFunc {
	log := deps.Logger.With("task", "session_sweep")

	return func(ctx context.Context) error {
		maxIdle := deps.Config.Session.IdleTimeout
		if maxIdle <= 0 {
			log.WarnContext(ctx, "Idle timeout not configured, skipping sweep")
			return nil
		}

		removed := deps.Registry.SweepIdle(maxIdle, time.Now())
		log.InfoContext(ctx, "Session sweep completed", "removed", removed, "remaining", deps.Registry.Len())
		return nil
	}
}
