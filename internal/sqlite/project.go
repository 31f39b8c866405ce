package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/internal/repository"
)

// ProjectRepository implements repository.ProjectRepository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, owner_id, name, description, theme_json, published, domain, created_at, updated_at, revision`

// Create inserts a project with revision 1. An empty ID is rejected; callers
// allocate identifiers so optimistic state can reference them immediately.
func (r *ProjectRepository) Create(ctx context.Context, proj *document.Project) error {
	if strings.TrimSpace(proj.ID) == "" || strings.TrimSpace(proj.OwnerID) == "" {
		return repository.ErrInvalidInput
	}
	theme, err := json.Marshal(proj.Theme)
	if err != nil {
		return fmt.Errorf("failed to encode theme: %w", err)
	}
	created := formatTime(proj.CreatedAt)

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err = r.db.ExecContext(ctx, query,
		proj.ID,
		proj.OwnerID,
		proj.Name,
		proj.Description,
		string(theme),
		proj.Published,
		proj.Domain,
		created,
		created,
	)
	if err != nil {
		return mapWriteError("create project", err)
	}

	proj.CreatedAt, _ = parseTime(created)
	proj.UpdatedAt = proj.CreatedAt
	proj.Revision = 1
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindProject), ID: proj.ID, OwnerID: proj.OwnerID})
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*document.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	proj, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return proj, nil
}

// Update applies patch and returns the new revision.
func (r *ProjectRepository) Update(ctx context.Context, id string, patch document.ProjectPatch) (int64, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Theme != nil {
		theme, err := json.Marshal(*patch.Theme)
		if err != nil {
			return 0, fmt.Errorf("failed to encode theme: %w", err)
		}
		sets = append(sets, "theme_json = ?")
		args = append(args, string(theme))
	}
	if patch.Published != nil {
		sets = append(sets, "published = ?")
		args = append(args, *patch.Published)
	}
	if patch.Domain != nil {
		sets = append(sets, "domain = ?")
		args = append(args, *patch.Domain)
	}

	ownerID, err := r.ownerOf(ctx, id)
	if err != nil {
		return 0, err
	}
	rev, err := updateRow(ctx, r.db, "projects", id, sets, args)
	if err != nil {
		return 0, err
	}
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindProject), ID: id, OwnerID: ownerID})
	return rev, nil
}

// Delete removes the project and its pages in a single transaction, so a
// failure leaves both intact.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ownerID, err := r.ownerOf(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project pages: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.db.publish(ctx, notify.Change{Kind: string(repository.KindPage), ProjectID: id, OwnerID: ownerID})
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindProject), ID: id, OwnerID: ownerID})
	return nil
}

// List returns projects matching filter.
func (r *ProjectRepository) List(ctx context.Context, filter repository.ProjectFilter, order repository.ListOrder) ([]document.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if filter.OwnerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	query += orderClause(order.Field, order.Desc, repository.OrderCreatedAt, repository.OrderUpdatedAt)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []document.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

// Subscribe delivers the filtered project list now and after every change to
// a matching project.
func (r *ProjectRepository) Subscribe(ctx context.Context, filter repository.ProjectFilter, order repository.ListOrder, fn func([]document.Project)) (repository.Unsubscribe, error) {
	match := func(c notify.Change) bool {
		return filter.OwnerID == "" || c.OwnerID == filter.OwnerID
	}
	list := func(ctx context.Context) ([]document.Project, error) {
		return r.List(ctx, filter, order)
	}
	return subscribe(ctx, r.db, repository.KindProject, match, list, fn)
}

func (r *ProjectRepository) ownerOf(ctx context.Context, id string) (string, error) {
	var ownerID string
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM projects WHERE id = ?`, id).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get project owner: %w", err)
	}
	return ownerID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*document.Project, error) {
	var proj document.Project
	var themeJSON, createdAt, updatedAt string
	err := row.Scan(
		&proj.ID,
		&proj.OwnerID,
		&proj.Name,
		&proj.Description,
		&themeJSON,
		&proj.Published,
		&proj.Domain,
		&createdAt,
		&updatedAt,
		&proj.Revision,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(themeJSON), &proj.Theme); err != nil {
		return nil, fmt.Errorf("failed to decode theme: %w", err)
	}
	if proj.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if proj.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &proj, nil
}
