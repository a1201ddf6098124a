package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every scheduled task. Tasks must
// respect ctx and report failures through the returned error.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the available tasks keyed by the name used in
// the scheduler section of the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
	tasks["chat_history_prune"] = newChatHistoryPruneTask(deps)
	if deps.Indexer != nil {
		tasks["reindex"] = newReindexTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
