package editor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/repository"
	"github.com/rpggio/pagesmith/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// subscriptions captures snapshot callbacks keyed by page filter.
type subscriptions struct {
	mu  sync.Mutex
	fns map[repository.PageFilter]func([]document.Page)
}

func (s *subscriptions) deliver(t *testing.T, filter repository.PageFilter, pages ...document.Page) {
	t.Helper()
	s.mu.Lock()
	fn := s.fns[filter]
	s.mu.Unlock()
	require.NotNil(t, fn, "no subscription for %+v", filter)
	if pages == nil {
		pages = []document.Page{}
	}
	fn(pages)
}

type mockEnv struct {
	users    *mocks.UserRepository
	projects *mocks.ProjectRepository
	pages    *mocks.PageRepository
	subs     *subscriptions
	ctrl     *editor.Controller
}

func newMockEnv(t *testing.T) *mockEnv {
	t.Helper()
	env := &mockEnv{
		users:    new(mocks.UserRepository),
		projects: new(mocks.ProjectRepository),
		pages:    new(mocks.PageRepository),
		subs:     &subscriptions{fns: make(map[repository.PageFilter]func([]document.Page))},
	}
	env.users.On("Get", mock.Anything, "u1").Return(&document.User{
		ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGoogle, Revision: 1,
	}, nil)
	env.projects.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*document.Project).Revision = 1
	}).Return(nil)
	env.pages.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*document.Page).Revision = 1
	}).Return(nil)
	env.pages.On("Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		env.subs.mu.Lock()
		env.subs.fns[args.Get(1).(repository.PageFilter)] = args.Get(3).(func([]document.Page))
		env.subs.mu.Unlock()
	}).Return(repository.Unsubscribe(func() {}), nil)

	env.ctrl = editor.New(editor.Config{
		Users:        env.users,
		Projects:     env.projects,
		Pages:        env.pages,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() { env.ctrl.Close() })
	return env
}

// openHome signs in and creates a project with an empty "Home" page, waiting
// for both writes.
func (env *mockEnv) openHome(t *testing.T) (document.Project, document.Page) {
	t.Helper()
	ctx := context.Background()
	_, err := env.ctrl.SignIn(ctx, editor.Profile{ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGoogle})
	require.NoError(t, err)

	proj, w, err := env.ctrl.CreateProject(ctx, document.ProjectDraft{Name: "Bakery"})
	require.NoError(t, err)
	require.NoError(t, w.Wait(ctx))

	page, w, err := env.ctrl.CreatePage(ctx, proj.ID, document.PageDraft{Name: "Home"})
	require.NoError(t, err)
	require.NoError(t, w.Wait(ctx))
	return proj, page
}

func remoteCopy(page document.Page, rev int64, components ...document.Component) document.Page {
	page.Revision = rev
	if components == nil {
		components = []document.Component{}
	}
	page.Components = components
	return page
}

func TestReconcile_StaleSnapshotDoesNotRevertInFlightEdit(t *testing.T) {
	env := newMockEnv(t)
	ctx := context.Background()
	proj, page := env.openHome(t)
	projectFilter := repository.PageFilter{ProjectID: proj.ID}

	release := make(chan struct{})
	env.pages.On("Update", mock.Anything, page.ID, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(int64(2), nil).Once()

	heading, w, err := env.ctrl.AddComponent(ctx, page.ID, document.Component{
		Type:  document.TypeText,
		Props: document.Bag{"text": "Fresh bread daily"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, heading.ID)

	// The store still holds the page without the heading.
	env.subs.deliver(t, projectFilter, remoteCopy(page, 1))
	tree, err := env.ctrl.RenderTree(page.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, heading.ID, tree[0].ID)

	close(release)
	require.NoError(t, w.Wait(ctx))

	// A snapshot older than the acknowledged revision is still ignored.
	env.subs.deliver(t, projectFilter, remoteCopy(page, 1))
	tree, err = env.ctrl.RenderTree(page.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	// Once the store catches up, its copy is adopted.
	stored := remoteCopy(page, 2, heading)
	env.subs.deliver(t, projectFilter, stored)
	current, _, ok := env.ctrl.CurrentProject()
	require.True(t, ok)
	require.Equal(t, "Bakery", current.Name)
	snap := env.ctrl.Snapshot()
	require.Len(t, snap.Pages, 1)
	require.Equal(t, int64(2), snap.Pages[0].Revision)
	require.Empty(t, snap.Pending)
}

func TestReconcile_RemoteChangeToSettledPageIsApplied(t *testing.T) {
	env := newMockEnv(t)
	proj, page := env.openHome(t)

	renamed := remoteCopy(page, 3)
	renamed.Name = "Welcome"
	env.subs.deliver(t, repository.PageFilter{ProjectID: proj.ID}, renamed)

	snap := env.ctrl.Snapshot()
	require.Len(t, snap.Pages, 1)
	require.Equal(t, "Welcome", snap.Pages[0].Name)
	require.Equal(t, int64(3), snap.Pages[0].Revision)
}

func TestReconcile_FailedWriteKeepsLocalStateUntilRetry(t *testing.T) {
	env := newMockEnv(t)
	ctx := context.Background()
	proj, page := env.openHome(t)

	env.pages.On("Update", mock.Anything, page.ID, mock.Anything).Return(int64(0), errors.New("disk full")).Once()
	_, w, err := env.ctrl.AddComponent(ctx, page.ID, document.Component{Type: document.TypeText})
	require.NoError(t, err)

	err = w.Wait(ctx)
	require.ErrorIs(t, err, editor.ErrPersistence)
	var perr *editor.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.True(t, perr.Retryable())

	snap := env.ctrl.Snapshot()
	require.Len(t, snap.Pending, 1)
	require.Equal(t, "update", snap.Pending[0].Failed)
	require.Contains(t, snap.Pending[0].Error, "disk full")

	// The unsaved component survives a snapshot of the stored page.
	env.subs.deliver(t, repository.PageFilter{ProjectID: proj.ID}, remoteCopy(page, 1))
	tree, err := env.ctrl.RenderTree(page.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	env.pages.On("Update", mock.Anything, page.ID, mock.Anything).Return(int64(2), nil).Once()
	n, w, err := env.ctrl.Retry(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, w.Wait(ctx))
	require.Empty(t, env.ctrl.Snapshot().Pending)
	env.pages.AssertNumberOfCalls(t, "Update", 2)
}

func TestReconcile_UnconfirmedPageSurvivesSnapshotWithoutIt(t *testing.T) {
	env := newMockEnv(t)
	ctx := context.Background()
	proj, page := env.openHome(t)

	release := make(chan struct{})
	env.pages.On("Create", mock.Anything, mock.Anything).Unset()
	env.pages.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-release
		args.Get(1).(*document.Page).Revision = 1
	}).Return(nil)

	about, w, err := env.ctrl.CreatePage(ctx, proj.ID, document.PageDraft{Name: "About"})
	require.NoError(t, err)

	env.subs.deliver(t, repository.PageFilter{ProjectID: proj.ID}, remoteCopy(page, 1))
	snap := env.ctrl.Snapshot()
	require.Len(t, snap.Pages, 2)

	close(release)
	require.NoError(t, w.Wait(ctx))

	// Home was confirmed by the previous snapshot, so its absence now means
	// it was deleted elsewhere.
	env.subs.deliver(t, repository.PageFilter{ProjectID: proj.ID}, remoteCopy(about, 1))
	snap = env.ctrl.Snapshot()
	require.Len(t, snap.Pages, 1)
	require.Equal(t, about.ID, snap.Pages[0].ID)
}

func TestReconcile_OpenPageRemovedRemotely(t *testing.T) {
	env := newMockEnv(t)
	ctx := context.Background()
	proj, page := env.openHome(t)

	_, err := env.ctrl.OpenPage(ctx, page.ID)
	require.NoError(t, err)
	require.Equal(t, page.ID, env.ctrl.Snapshot().OpenPageID)

	filter := repository.PageFilter{ProjectID: proj.ID}
	env.subs.deliver(t, filter, remoteCopy(page, 1))
	env.subs.deliver(t, filter)

	snap := env.ctrl.Snapshot()
	require.Empty(t, snap.Pages)
	require.Empty(t, snap.OpenPageID)
}

func TestReconcile_SwitchingProjectsReleasesSubscriptions(t *testing.T) {
	ctx := context.Background()
	users := new(mocks.UserRepository)
	projects := new(mocks.ProjectRepository)
	pages := new(mocks.PageRepository)
	users.On("Get", mock.Anything, "u1").Return(&document.User{
		ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGoogle, Revision: 1,
	}, nil)
	projects.On("Create", mock.Anything, mock.Anything).Return(nil)
	pages.On("Create", mock.Anything, mock.Anything).Return(nil)

	var mu sync.Mutex
	live := map[repository.PageFilter]int{}
	pages.On("Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, filter repository.PageFilter, _ repository.ListOrder, _ func([]document.Page)) repository.Unsubscribe {
			mu.Lock()
			live[filter]++
			mu.Unlock()
			return func() {
				mu.Lock()
				live[filter]--
				mu.Unlock()
			}
		}, nil)
	liveCount := func() (total int) {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range live {
			total += n
		}
		return total
	}

	ctrl := editor.New(editor.Config{Users: users, Projects: projects, Pages: pages, WriteTimeout: 5 * time.Second})
	t.Cleanup(func() { ctrl.Close() })
	_, err := ctrl.SignIn(ctx, editor.Profile{ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGoogle})
	require.NoError(t, err)

	first, _, err := ctrl.CreateProject(ctx, document.ProjectDraft{Name: "Bakery"})
	require.NoError(t, err)
	page, _, err := ctrl.CreatePage(ctx, first.ID, document.PageDraft{Name: "Home"})
	require.NoError(t, err)
	_, err = ctrl.OpenPage(ctx, page.ID)
	require.NoError(t, err)
	require.Equal(t, 2, liveCount(), "project pages and open page")

	second, _, err := ctrl.CreateProject(ctx, document.ProjectDraft{Name: "Florist"})
	require.NoError(t, err)
	require.Equal(t, 1, liveCount())
	mu.Lock()
	require.Zero(t, live[repository.PageFilter{ProjectID: first.ID}])
	require.Zero(t, live[repository.PageFilter{ProjectID: first.ID, ID: page.ID}])
	require.Equal(t, 1, live[repository.PageFilter{ProjectID: second.ID}])
	mu.Unlock()

	ctrl.SignOut()
	require.Zero(t, liveCount())
}
