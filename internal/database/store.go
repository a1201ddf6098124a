package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the persistence operations. All methods honour ctx.
type Store interface {
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	// ListActiveProducts returns every active product, for indexing.
	ListActiveProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	// UpsertProduct inserts or replaces a product by ID.
	UpsertProduct(ctx context.Context, product *Product) error
	// UpsertCategory returns the ID of the named category, creating it if needed.
	UpsertCategory(ctx context.Context, name, description string) (int64, error)
	ListCategories(ctx context.Context) ([]Category, error)

	// AddToCart adds quantity of a product, merging with an existing line
	// for the same product and size.
	AddToCart(ctx context.Context, sessionID string, productID int64, quantity int, size string) (*CartItem, error)
	GetCart(ctx context.Context, sessionID string) (*Cart, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	// ClearCart removes every line of a session's cart and reports how many.
	ClearCart(ctx context.Context, sessionID string) (int64, error)

	// Checkout converts the session's cart into a pending order and empties
	// the cart in the same transaction.
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, sessionID string, limit int) ([]Order, error)

	EnsureChatSession(ctx context.Context, sessionID string) error
	AddChatMessage(ctx context.Context, msg *ChatMessage) error
	// GetChatHistory returns up to limit of the most recent messages, oldest first.
	GetChatHistory(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
	DeleteChatHistory(ctx context.Context, sessionID string) error
	// PruneChatMessages deletes messages created before cutoff.
	PruneChatMessages(ctx context.Context, cutoff time.Time) (int64, error)

	// ReplaceChunks atomically swaps the retrieval index contents.
	ReplaceChunks(ctx context.Context, chunks []DocumentChunk) error
	ListChunks(ctx context.Context) ([]DocumentChunk, error)
	CountChunks(ctx context.Context) (int, error)
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "operation", op, "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryErr logs and wraps a failed query. Context errors are returned as is.
func (s *sqlxStore) queryErr(ctx context.Context, op string, err error, attrs ...any) error {
	if isContextErr(err) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation", append([]any{"operation", op, "error", err}, attrs...)...)
		return err
	}
	s.logger.ErrorContext(ctx, "Database operation failed", append([]any{"operation", op, "error", err}, attrs...)...)
	return fmt.Errorf("failed to %s: %w", op, err)
}

// RunSQLMaintenance executes VACUUM, which SQLite refuses inside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case isContextErr(err):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
