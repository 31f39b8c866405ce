package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithNotifier routes change events through n instead of an in-process
// notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(db *DB) { db.notifier = n }
}

// WithLogger sets the logger used for subscription and notification errors.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// New creates a new SQLite database connection
func New(dataSourceName string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and each :memory: connection is a separate
	// database, so the pool holds exactly one connection.
	sqlDB.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{DB: sqlDB}
	for _, opt := range opts {
		opt(db)
	}
	if db.notifier == nil {
		db.notifier = notify.NewLocal()
	}
	if db.logger == nil {
		db.logger = slog.New(slog.DiscardHandler)
	}
	return db, nil
}

// Notifier returns the notifier writes publish to.
func (db *DB) Notifier() notify.Notifier {
	return db.notifier
}

// RunMigrations applies every embedded *.up.sql file in name order.
func (db *DB) RunMigrations() error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", strings.TrimSuffix(name, ".up.sql"), err)
		}
	}

	return nil
}

// publish reports a committed write. A failed publish leaves subscribers one
// snapshot behind; the write itself has already succeeded.
func (db *DB) publish(ctx context.Context, change notify.Change) {
	if err := db.notifier.Publish(context.WithoutCancel(ctx), change); err != nil {
		db.logger.Warn("failed to publish change", "kind", change.Kind, "id", change.ID, "error", err)
	}
}
