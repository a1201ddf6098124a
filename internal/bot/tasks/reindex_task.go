package tasks

import (
	"context"
	"fmt"
	"time"
)

const reindexTimeout = 15 * time.Minute

// newReindexTask rebuilds the retrieval index from the catalog and the
// documents directory, then refreshes the live retriever.
func newReindexTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "reindex")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, reindexTimeout)
		defer cancel()

		n, err := deps.Indexer.Rebuild(timeoutCtx)
		if err != nil {
			return fmt.Errorf("failed to rebuild index: %w", err)
		}

		if deps.Reloader != nil {
			if err := deps.Reloader.Reload(timeoutCtx); err != nil {
				return fmt.Errorf("index rebuilt but reload failed: %w", err)
			}
		}

		log.InfoContext(ctx, "Retrieval index rebuilt", "chunks", n)
		return nil
	}
}
