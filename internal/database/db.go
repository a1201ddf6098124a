// Package database owns the SQLite schema and the Store used by the HTTP
// API, the Telegram front end, the retrieval indexer and scheduled tasks.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/baristabot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

var (
	// ErrNotFound is returned when a product, cart item or order does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCart is returned by Checkout for a session with no cart items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity is returned for cart quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// NewDB opens the SQLite database at dbPath and applies pending migrations.
func NewDB(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON;", "PRAGMA busy_timeout = 5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			CloseDB(db)
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := ApplyMigrations(db.DB, ExtractDBNameFromPath(dbPath)); err != nil {
		CloseDB(db)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully", "path", dbPath)
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// ApplyMigrations runs the embedded migrations against db.
func ApplyMigrations(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}
	if dbName == "" {
		return errors.New("database name/path for migration driver is empty")
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite3 database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.", "database_name", dbName)
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.", "database_name", dbName)
	return nil
}

// ExtractDBNameFromPath strips a file: prefix and query parameters from a DSN.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func nowUTC() time.Time { return time.Now().UTC() }
