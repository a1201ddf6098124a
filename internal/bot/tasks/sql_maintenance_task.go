package tasks

import (
	"context"
	"fmt"
	"time"
)

// vacuumTimeout bounds a single VACUUM run.
const vacuumTimeout = 10 * time.Minute

// newSQLMaintenanceTask compacts the catalog and chat database. The store is
// pinged first so an unreachable database fails fast instead of timing out.
// Run counts are recorded by the scheduler.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		if err := deps.Store.Ping(ctx); err != nil {
			log.WarnContext(ctx, "Skipping vacuum, database unreachable", "error", err)
			return fmt.Errorf("sql maintenance: database unreachable: %w", err)
		}

		vacuumCtx, cancel := context.WithTimeout(ctx, vacuumTimeout)
		defer cancel()

		start := time.Now()
		if err := deps.Store.RunSQLMaintenance(vacuumCtx); err != nil {
			return fmt.Errorf("sql maintenance: %w", err)
		}

		log.InfoContext(ctx, "Database vacuumed", "duration", time.Since(start))
		return nil
	}
}
