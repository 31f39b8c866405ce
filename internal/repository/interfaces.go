package repository

import (
	"context"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

// Kind names one of the persisted collections.
type Kind string

const (
	KindUser    Kind = "user"
	KindProject Kind = "project"
	KindPage    Kind = "page"
)

// OrderField is a sortable timestamp column.
type OrderField string

const (
	OrderCreatedAt OrderField = "created_at"
	OrderUpdatedAt OrderField = "updated_at"
)

// ListOrder controls the ordering of List and Subscribe results.
type ListOrder struct {
	Field OrderField
	Desc  bool
}

// Unsubscribe releases a subscription. It is safe to call more than once.
type Unsubscribe func()

// UserRepository manages user persistence. Users are never deleted here.
type UserRepository interface {
	Create(ctx context.Context, user *document.User) error
	Get(ctx context.Context, id string) (*document.User, error)
	Update(ctx context.Context, id string, patch document.UserPatch) (int64, error)
}

// ProjectFilter selects projects. Empty fields match everything.
type ProjectFilter struct {
	OwnerID string
}

// ProjectRepository manages project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, proj *document.Project) error
	Get(ctx context.Context, id string) (*document.Project, error)
	// Update applies patch and returns the new revision.
	Update(ctx context.Context, id string, patch document.ProjectPatch) (int64, error)
	// Delete removes the project and all of its pages atomically.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ProjectFilter, order ListOrder) ([]document.Project, error)
	Subscribe(ctx context.Context, filter ProjectFilter, order ListOrder, fn func([]document.Project)) (Unsubscribe, error)
}

// PageFilter selects pages. ID narrows a project filter to a single page.
type PageFilter struct {
	ProjectID string
	ID        string
}

// PageRepository manages page persistence. Component trees are stored
// embedded in the page record.
type PageRepository interface {
	Create(ctx context.Context, page *document.Page) error
	Get(ctx context.Context, id string) (*document.Page, error)
	// Update applies patch and returns the new revision.
	Update(ctx context.Context, id string, patch document.PagePatch) (int64, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter PageFilter, order ListOrder) ([]document.Page, error)
	Subscribe(ctx context.Context, filter PageFilter, order ListOrder, fn func([]document.Page)) (Unsubscribe, error)
}
