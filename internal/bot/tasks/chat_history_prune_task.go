package tasks

import (
	"context"
	"fmt"
	"time"
)

const pruneTimeout = 2 * time.Minute

// newChatHistoryPruneTask deletes chat messages older than the configured
// retention window, along with sessions left empty.
func newChatHistoryPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "chat_history_prune")

	return func(ctx context.Context) error {
		retention := deps.Config.Database.HistoryRetention
		if retention <= 0 {
			log.WarnContext(ctx, "History retention not set, skipping prune")
			return nil
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
		defer cancel()

		cutoff := time.Now().UTC().Add(-retention)
		deleted, err := deps.Store.PruneChatMessages(timeoutCtx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune chat history: %w", err)
		}

		log.InfoContext(ctx, "Chat history pruned", "deleted", deleted, "retention", retention)
		return nil
	}
}
