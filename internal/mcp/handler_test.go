package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/repository"
	"github.com/rpggio/pagesmith/internal/repository/mocks"
	"github.com/rpggio/pagesmith/internal/sqlite"
)

func newTestEditor(t *testing.T) *editor.Controller {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	ctrl := editor.New(editor.Config{
		Users:        sqlite.NewUserRepository(db),
		Projects:     sqlite.NewProjectRepository(db),
		Pages:        sqlite.NewPageRepository(db),
		Activity:     activity.NewService(sqlite.NewActivityRepository(db), nil),
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

func signInParams() SignInParams {
	return SignInParams{ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGitHub}
}

func TestHandler_ProjectAndPageCommands(t *testing.T) {
	ctx := context.Background()
	handler := NewHandler(newTestEditor(t), nil)

	_, err := handler.Handle(ctx, "sign_in", mustJSON(t, signInParams()))
	require.NoError(t, err)

	out, err := handler.Handle(ctx, "create_project", mustJSON(t, CreateProjectParams{
		WriteParams: WriteParams{Wait: true},
		Name:        "Bakery",
	}))
	require.NoError(t, err)
	proj := out.(ProjectResponse)
	require.True(t, proj.Write.Durable)
	require.Equal(t, document.DefaultTheme(), proj.Project.Theme)

	out, err = handler.Handle(ctx, "create_page", mustJSON(t, CreatePageParams{
		WriteParams: WriteParams{Wait: true},
		ProjectID:   proj.Project.ID,
		Name:        "Home",
	}))
	require.NoError(t, err)
	page := out.(PageResponse)
	require.Equal(t, "home", page.Page.Slug)
	require.True(t, page.Write.Durable)

	out, err = handler.Handle(ctx, "add_component", mustJSON(t, AddComponentParams{
		PageID:    page.Page.ID,
		Component: document.Component{Type: document.TypeContainer},
	}))
	require.NoError(t, err)
	container := out.(ComponentResponse).Component
	require.NotEmpty(t, container.ID)

	out, err = handler.Handle(ctx, "add_component", mustJSON(t, AddComponentParams{
		WriteParams: WriteParams{Wait: true},
		PageID:      page.Page.ID,
		ParentID:    container.ID,
		Component:   document.Component{Type: document.TypeText, Props: document.Bag{"text": "Fresh bread"}},
	}))
	require.NoError(t, err)
	text := out.(ComponentResponse)
	require.True(t, text.Write.Durable)

	out, err = handler.Handle(ctx, "render_page", mustJSON(t, RenderPageParams{PageID: page.Page.ID}))
	require.NoError(t, err)
	tree := out.(RenderPageResponse).Components
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, text.Component.ID, tree[0].Children[0].ID)

	_, err = handler.Handle(ctx, "open_page", mustJSON(t, IDParams{ID: page.Page.ID}))
	require.NoError(t, err)
	out, err = handler.Handle(ctx, "select_component", mustJSON(t, SelectComponentParams{ComponentID: text.Component.ID}))
	require.NoError(t, err)
	require.Equal(t, text.Component.ID, out.(editor.UIState).SelectedComponentID)

	preview := true
	out, err = handler.Handle(ctx, "set_ui", mustJSON(t, SetUIParams{PreviewMode: &preview, ToggleDarkMode: true}))
	require.NoError(t, err)
	ui := out.(editor.UIState)
	require.True(t, ui.PreviewMode)
	require.True(t, ui.DarkMode)

	out, err = handler.Handle(ctx, "get_state", nil)
	require.NoError(t, err)
	state := out.(editor.State)
	require.Equal(t, page.Page.ID, state.OpenPageID)
	require.Len(t, state.Pages, 1)

	out, err = handler.Handle(ctx, "list_projects", nil)
	require.NoError(t, err)
	require.Len(t, out.([]document.Project), 1)

	out, err = handler.Handle(ctx, "delete_page", mustJSON(t, DeleteParams{WriteParams: WriteParams{Wait: true}, ID: page.Page.ID}))
	require.NoError(t, err)
	require.True(t, out.(WriteStatus).Durable)

	out, err = handler.Handle(ctx, "get_recent_activity", mustJSON(t, RecentActivityParams{ProjectID: proj.Project.ID}))
	require.NoError(t, err)
	entries := out.([]activity.ActivityEntry)
	require.NotEmpty(t, entries)
	require.Equal(t, activity.TypePageDeleted, entries[0].ActivityType)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	handler := NewHandler(newTestEditor(t), nil)

	requireCode := func(t *testing.T, err error, code string) *APIError {
		t.Helper()
		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, code, apiErr.Code)
		return apiErr
	}

	_, err := handler.Handle(ctx, "list_projects", nil)
	requireCode(t, err, CodeUnauthenticated)

	_, err = handler.Handle(ctx, "sign_in", mustJSON(t, signInParams()))
	require.NoError(t, err)

	_, err = handler.Handle(ctx, "open_project", mustJSON(t, IDParams{ID: "missing"}))
	requireCode(t, err, CodeNotFound)
	require.ErrorIs(t, err, editor.ErrNotFound)

	_, err = handler.Handle(ctx, "create_project", mustJSON(t, CreateProjectParams{Name: "  "}))
	apiErr := requireCode(t, err, CodeValidationFailed)
	require.Equal(t, map[string]string{"field": "project.name"}, apiErr.Details)
	require.ErrorIs(t, err, document.ErrValidation)

	_, err = handler.Handle(ctx, "create_project", json.RawMessage(`{"name": 42}`))
	apiErr = requireCode(t, err, CodeValidationFailed)
	require.Equal(t, map[string]string{"field": "params"}, apiErr.Details)

	_, err = handler.Handle(ctx, "generate_site", mustJSON(t, GenerateSiteParams{}))
	requireCode(t, err, CodeGenerationInvalid)

	_, err = handler.Handle(ctx, "publish_everything", nil)
	requireCode(t, err, CodeUnknownMethod)
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestHandler_WaitReportsFailedWrite(t *testing.T) {
	ctx := context.Background()
	users := new(mocks.UserRepository)
	projects := new(mocks.ProjectRepository)
	pages := new(mocks.PageRepository)
	users.On("Get", mock.Anything, "u1").Return(&document.User{
		ID: "u1", Email: "ada@example.com", Name: "Ada", Provider: document.ProviderGitHub, Revision: 1,
	}, nil)
	projects.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	pages.On("Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repository.Unsubscribe(func() {}), nil)

	ctrl := editor.New(editor.Config{Users: users, Projects: projects, Pages: pages, WriteTimeout: time.Second})
	t.Cleanup(func() { ctrl.Close() })
	handler := NewHandler(ctrl, nil)

	_, err := handler.Handle(ctx, "sign_in", mustJSON(t, signInParams()))
	require.NoError(t, err)

	out, err := handler.Handle(ctx, "create_project", mustJSON(t, CreateProjectParams{
		WriteParams: WriteParams{Wait: true},
		Name:        "Bakery",
	}))
	require.NoError(t, err)
	resp := out.(ProjectResponse)
	require.Equal(t, "Bakery", resp.Project.Name)
	require.False(t, resp.Write.Durable)
	require.NotNil(t, resp.Write.Error)
	require.Equal(t, CodePersistenceFailed, resp.Write.Error.Code)
	require.True(t, resp.Write.Error.Retryable)
	require.Equal(t, string(repository.KindProject), resp.Write.Error.Details.(map[string]string)["kind"])

	projects.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*document.Project).Revision = 1
	}).Return(nil).Once()
	out, err = handler.Handle(ctx, "retry_writes", mustJSON(t, WriteParams{Wait: true}))
	require.NoError(t, err)
	retried := out.(RetryResponse)
	require.Equal(t, 1, retried.Retried)
	require.True(t, retried.Write.Durable)
}

func connectClient(t *testing.T, server *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestServer_ToolsOverTransport(t *testing.T) {
	ctx := context.Background()
	session := connectClient(t, NewServer(Config{Editor: newTestEditor(t)}))

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, len(buildToolCatalog()))

	_, isErr := callTool(t, session, "sign_in", map[string]any{
		"id": "u1", "email": "ada@example.com", "name": "Ada", "provider": "google",
	})
	require.False(t, isErr)

	body, isErr := callTool(t, session, "create_project", map[string]any{"name": "Bakery", "wait": true})
	require.False(t, isErr)
	var proj ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(body), &proj))
	require.Equal(t, "Bakery", proj.Project.Name)
	require.True(t, proj.Write.Durable)

	body, isErr = callTool(t, session, "create_page", map[string]any{
		"project_id": proj.Project.ID,
		"name":       "Home",
		"components": []any{map[string]any{"type": "marquee"}},
	})
	require.True(t, isErr)
	var apiErr APIError
	require.NoError(t, json.Unmarshal([]byte(body), &apiErr))
	require.Equal(t, CodeValidationFailed, apiErr.Code)
	require.NotEmpty(t, apiErr.RecoveryHint)
}

func TestServer_DocResources(t *testing.T) {
	ctx := context.Background()
	session := connectClient(t, NewServer(Config{Editor: newTestEditor(t)}))

	res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "pagesmith://docs/errors"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, CodePersistenceFailed)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
