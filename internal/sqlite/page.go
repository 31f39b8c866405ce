package sqlite

import (
	"bytes"
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

// PageRepository implements repository.PageRepository for SQLite
type PageRepository struct {
	db *DB
}

// NewPageRepository creates a new PageRepository
func NewPageRepository(db *DB) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `id, project_id, name, slug, components_json, seo_json, created_at, updated_at, revision`

// Create inserts a page with revision 1. Slugs are unique per project.
func (r *PageRepository) Create(ctx context.Context, page *document.Page) error {
	if strings.TrimSpace(page.ID) == "" || strings.TrimSpace(page.ProjectID) == "" {
		return repository.ErrInvalidInput
	}
	components, seo, err := encodePageBody(page.Components, page.SEO)
	if err != nil {
		return err
	}
	created := formatTime(page.CreatedAt)

	query := `
		INSERT INTO pages (` + pageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err = r.db.ExecContext(ctx, query,
		page.ID,
		page.ProjectID,
		page.Name,
		page.Slug,
		components,
		seo,
		created,
		created,
	)
	if err != nil {
		return mapWriteError("create page", err)
	}

	page.CreatedAt, _ = parseTime(created)
	page.UpdatedAt = page.CreatedAt
	page.Revision = 1
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindPage), ID: page.ID, ProjectID: page.ProjectID})
	return nil
}

// Get retrieves a page by ID
func (r *PageRepository) Get(ctx context.Context, id string) (*document.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = ?`
	page, err := scanPage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// Update applies patch and returns the new revision.
func (r *PageRepository) Update(ctx context.Context, id string, patch document.PagePatch) (int64, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Slug != nil {
		sets = append(sets, "slug = ?")
		args = append(args, *patch.Slug)
	}
	if patch.Components != nil {
		data, err := json.Marshal(nonNilComponents(*patch.Components))
		if err != nil {
			return 0, fmt.Errorf("failed to encode components: %w", err)
		}
		sets = append(sets, "components_json = ?")
		args = append(args, string(data))
	}
	if patch.SEO != nil {
		data, err := json.Marshal(*patch.SEO)
		if err != nil {
			return 0, fmt.Errorf("failed to encode seo: %w", err)
		}
		sets = append(sets, "seo_json = ?")
		args = append(args, string(data))
	}

	var projectID string
	err := r.db.QueryRowContext(ctx, `SELECT project_id FROM pages WHERE id = ?`, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get page project: %w", err)
	}

	rev, err := updateRow(ctx, r.db, "pages", id, sets, args)
	if err != nil {
		return 0, err
	}
	r.db.publish(ctx, notify.Change{Kind: string(repository.KindPage), ID: id, ProjectID: projectID})
	return rev, nil
}

// Delete removes a single page.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	var projectID string
	err := r.db.QueryRowContext(ctx, `SELECT project_id FROM pages WHERE id = ?`, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get page project: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	r.db.publish(ctx, notify.Change{Kind: string(repository.KindPage), ID: id, ProjectID: projectID})
	return nil
}

// List returns pages matching filter.
func (r *PageRepository) List(ctx context.Context, filter repository.PageFilter, order repository.ListOrder) ([]document.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages`
	var conditions []string
	var args []any
	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.ID != "" {
		conditions = append(conditions, "id = ?")
		args = append(args, filter.ID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += orderClause(order.Field, order.Desc, repository.OrderCreatedAt, repository.OrderUpdatedAt)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := []document.Page{}
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows: %w", err)
	}
	return pages, nil
}

// Subscribe delivers the filtered page list now and after every change to a
// matching page, including cascade deletes of the owning project.
func (r *PageRepository) Subscribe(ctx context.Context, filter repository.PageFilter, order repository.ListOrder, fn func([]document.Page)) (repository.Unsubscribe, error) {
	match := func(c notify.Change) bool {
		if filter.ProjectID != "" && c.ProjectID != filter.ProjectID {
			return false
		}
		return filter.ID == "" || c.ID == "" || c.ID == filter.ID
	}
	list := func(ctx context.Context) ([]document.Page, error) {
		return r.List(ctx, filter, order)
	}
	return subscribe(ctx, r.db, repository.KindPage, match, list, fn)
}

func encodePageBody(components []document.Component, seo document.SEO) (string, string, error) {
	c, err := json.Marshal(nonNilComponents(components))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode components: %w", err)
	}
	s, err := json.Marshal(seo)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode seo: %w", err)
	}
	return string(c), string(s), nil
}

func nonNilComponents(components []document.Component) []document.Component {
	if components == nil {
		return []document.Component{}
	}
	return components
}

func scanPage(row rowScanner) (*document.Page, error) {
	var page document.Page
	var componentsJSON, seoJSON, createdAt, updatedAt string
	err := row.Scan(
		&page.ID,
		&page.ProjectID,
		&page.Name,
		&page.Slug,
		&componentsJSON,
		&seoJSON,
		&createdAt,
		&updatedAt,
		&page.Revision,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(componentsJSON, &page.Components); err != nil {
		return nil, fmt.Errorf("failed to decode components: %w", err)
	}
	if err := decodeJSON(seoJSON, &page.SEO); err != nil {
		return nil, fmt.Errorf("failed to decode seo: %w", err)
	}
	if page.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if page.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &page, nil
}

func decodeJSON(data string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	return dec.Decode(out)
}
