// Package tasks implements the scheduled maintenance tasks: database
// upkeep, chat history retention and retrieval index rebuilds.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/baristabot/internal/config"
	"github.com/edgard/baristabot/internal/database"
)

// Indexer rebuilds the retrieval index and reports how many chunks it wrote.
type Indexer interface {
	Rebuild(ctx context.Context) (int, error)
}

// IndexReloader refreshes an in-memory copy of the index after a rebuild.
type IndexReloader interface {
	Reload(ctx context.Context) error
}

// TaskDeps contains the dependencies of the scheduled tasks. Indexer and
// Reloader are optional; without an Indexer the reindex task is not registered.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Config   *config.Config
	Indexer  Indexer
	Reloader IndexReloader
}
