package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/internal/repository"
)

// UserRepository implements repository.UserRepository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user with revision 1.
func (r *UserRepository) Create(ctx context.Context, user *document.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return repository.ErrInvalidInput
	}
	if user.Subscription == "" {
		user.Subscription = document.TierFree
	}
	now := formatTime(user.CreatedAt)

	query := `
		INSERT INTO users (id, email, name, avatar, provider, subscription, created_at, updated_at, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Avatar,
		user.Provider,
		user.Subscription,
		now,
		now,
	)
	if err != nil {
		return mapWriteError("create user", err)
	}

	created, _ := parseTime(now)
	user.CreatedAt = created
	user.UpdatedAt = created
	user.Revision = 1
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindUser), ID: user.ID, OwnerID: user.ID})
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*document.User, error) {
	query := `
		SELECT id, email, name, avatar, provider, subscription, created_at, updated_at, revision
		FROM users
		WHERE id = ?
	`
	var user document.User
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Avatar,
		&user.Provider,
		&user.Subscription,
		&createdAt,
		&updatedAt,
		&user.Revision,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies a profile patch and returns the new revision.
func (r *UserRepository) Update(ctx context.Context, id string, patch document.UserPatch) (int64, error) {
	var sets []string
	var args []any
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *patch.Avatar)
	}
	if patch.Subscription != nil {
		sets = append(sets, "subscription = ?")
		args = append(args, *patch.Subscription)
	}

	rev, err := updateRow(ctx, r.db, "users", id, sets, args)
	if err != nil {
		return 0, err
	}
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindUser), ID: id, OwnerID: id})
	return rev, nil
}

// updateRow applies sets to one row, refreshes updated_at, bumps the revision
// and returns it, all in one transaction.
func updateRow(ctx context.Context, db *DB, table, id string, sets []string, args []any) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(document.Now())
	sets = append(sets, monotonicUpdatedAt, "revision = revision + 1")
	args = append(args, now, now, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapWriteError("update "+strings.TrimSuffix(table, "s"), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, repository.ErrNotFound
	}

	var revision int64
	selectQuery := fmt.Sprintf("SELECT revision FROM %s WHERE id = ?", table)
	if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&revision); err != nil {
		return 0, fmt.Errorf("failed to get new revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return revision, nil
}
