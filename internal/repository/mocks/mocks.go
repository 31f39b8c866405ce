package mocks

import (
	"context"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock for repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *document.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*document.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*document.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, id string, patch document.UserPatch) (int64, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

// ProjectRepository is a mock for repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *document.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*document.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*document.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, id string, patch document.ProjectPatch) (int64, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) List(ctx context.Context, filter repository.ProjectFilter, order repository.ListOrder) ([]document.Project, error) {
	args := m.Called(ctx, filter, order)
	if list, ok := args.Get(0).([]document.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Subscribe(ctx context.Context, filter repository.ProjectFilter, order repository.ListOrder, fn func([]document.Project)) (repository.Unsubscribe, error) {
	args := m.Called(ctx, filter, order, fn)
	switch v := args.Get(0).(type) {
	case repository.Unsubscribe:
		return v, args.Error(1)
	case func(context.Context, repository.ProjectFilter, repository.ListOrder, func([]document.Project)) repository.Unsubscribe:
		return v(ctx, filter, order, fn), args.Error(1)
	}
	return nil, args.Error(1)
}

// PageRepository is a mock for repository.PageRepository.
type PageRepository struct {
	mock.Mock
}

func (m *PageRepository) Create(ctx context.Context, page *document.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *PageRepository) Get(ctx context.Context, id string) (*document.Page, error) {
	args := m.Called(ctx, id)
	if page, ok := args.Get(0).(*document.Page); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PageRepository) Update(ctx context.Context, id string, patch document.PagePatch) (int64, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PageRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *PageRepository) List(ctx context.Context, filter repository.PageFilter, order repository.ListOrder) ([]document.Page, error) {
	args := m.Called(ctx, filter, order)
	if list, ok := args.Get(0).([]document.Page); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PageRepository) Subscribe(ctx context.Context, filter repository.PageFilter, order repository.ListOrder, fn func([]document.Page)) (repository.Unsubscribe, error) {
	args := m.Called(ctx, filter, order, fn)
	switch v := args.Get(0).(type) {
	case repository.Unsubscribe:
		return v, args.Error(1)
	case func(context.Context, repository.PageFilter, repository.ListOrder, func([]document.Page)) repository.Unsubscribe:
		return v(ctx, filter, order, fn), args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, ownerID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, ownerID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, ownerID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
