package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/generation"
)

// Editor is the document graph the tools operate on.
type Editor interface {
	SignIn(ctx context.Context, profile editor.Profile) (document.User, error)
	SignOut()
	Snapshot() editor.State

	CreateProject(ctx context.Context, draft document.ProjectDraft) (document.Project, *editor.Write, error)
	UpdateProject(ctx context.Context, id string, patch document.ProjectPatch) (document.Project, *editor.Write, error)
	DeleteProject(ctx context.Context, id string) (*editor.Write, error)
	OpenProject(ctx context.Context, id string) (document.Project, []document.Page, error)
	ListProjects(ctx context.Context) ([]document.Project, error)

	CreatePage(ctx context.Context, projectID string, draft document.PageDraft) (document.Page, *editor.Write, error)
	UpdatePage(ctx context.Context, pageID string, patch document.PagePatch) (document.Page, *editor.Write, error)
	DeletePage(ctx context.Context, pageID string) (*editor.Write, error)
	OpenPage(ctx context.Context, pageID string) (document.Page, error)

	AddComponent(ctx context.Context, pageID string, comp document.Component) (document.Component, *editor.Write, error)
	AddChildComponent(ctx context.Context, pageID, parentID string, comp document.Component) (document.Component, *editor.Write, error)
	UpdateComponent(ctx context.Context, pageID string, comp document.Component) (document.Component, *editor.Write, error)
	DeleteComponent(ctx context.Context, pageID, componentID string) (*editor.Write, error)
	ReorderComponents(ctx context.Context, pageID string, ids []string) (*editor.Write, error)
	RenderTree(pageID string) ([]document.Component, error)

	SetSelectedComponent(componentID string) error
	SetPreviewMode(on bool)
	ToggleDarkMode() bool
	ToggleSidebar() bool
	UI() editor.UIState

	GenerateSite(ctx context.Context, req generation.Request) (*editor.GeneratedSite, *editor.Write, error)
	EnhanceComponent(ctx context.Context, pageID, componentID, instructions string) (document.Component, *editor.Write, error)
	GenerateCopy(ctx context.Context, contentType, brief string) (string, error)

	Retry(ctx context.Context) (int, *editor.Write, error)
	RecentActivity(ctx context.Context, projectID string, limit int) ([]activity.ActivityEntry, error)
}

// Handler dispatches MCP commands.
type Handler struct {
	editor Editor
	logger *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(ed Editor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{editor: ed, logger: logger}
}

// Handle dispatches a tool call to the editor. Errors of a known kind are
// returned as *APIError.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "sign_in":
		var req SignInParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.editor.SignIn(ctx, editor.Profile(req))
	case "sign_out":
		h.editor.SignOut()
		return map[string]string{"status": "signed_out"}, nil
	case "get_state":
		return h.editor.Snapshot(), nil

	case "create_project":
		var req CreateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, w, err := h.editor.CreateProject(ctx, document.ProjectDraft{
			Name:        req.Name,
			Description: req.Description,
			Theme:       req.Theme,
			Published:   req.Published,
			Domain:      req.Domain,
		})
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return ProjectResponse{Project: proj, Write: status}, nil
	case "update_project":
		var req UpdateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, w, err := h.editor.UpdateProject(ctx, req.ID, req.ProjectPatch)
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return ProjectResponse{Project: proj, Write: status}, nil
	case "delete_project":
		var req DeleteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		w, err := h.editor.DeleteProject(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return h.await(ctx, w, req.Wait)
	case "open_project":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		proj, pages, err := h.editor.OpenProject(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return OpenProjectResponse{Project: proj, Pages: pages}, nil
	case "list_projects":
		return h.editor.ListProjects(ctx)

	case "create_page":
		var req CreatePageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		page, w, err := h.editor.CreatePage(ctx, req.ProjectID, document.PageDraft{
			Name:       req.Name,
			Slug:       req.Slug,
			Components: req.Components,
			SEO:        req.SEO,
		})
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return PageResponse{Page: page, Write: status}, nil
	case "update_page":
		var req UpdatePageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		page, w, err := h.editor.UpdatePage(ctx, req.ID, req.PagePatch)
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return PageResponse{Page: page, Write: status}, nil
	case "delete_page":
		var req DeleteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		w, err := h.editor.DeletePage(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return h.await(ctx, w, req.Wait)
	case "open_page":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.editor.OpenPage(ctx, req.ID)

	case "add_component":
		var req AddComponentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		var (
			comp document.Component
			w    *editor.Write
			err  error
		)
		if req.ParentID != "" {
			comp, w, err = h.editor.AddChildComponent(ctx, req.PageID, req.ParentID, req.Component)
		} else {
			comp, w, err = h.editor.AddComponent(ctx, req.PageID, req.Component)
		}
		if err != nil {
			return nil, err
		}
		return h.componentResponse(ctx, comp, w, req.Wait)
	case "update_component":
		var req UpdateComponentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		comp, w, err := h.editor.UpdateComponent(ctx, req.PageID, req.Component)
		if err != nil {
			return nil, err
		}
		return h.componentResponse(ctx, comp, w, req.Wait)
	case "delete_component":
		var req DeleteComponentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		w, err := h.editor.DeleteComponent(ctx, req.PageID, req.ComponentID)
		if err != nil {
			return nil, err
		}
		return h.await(ctx, w, req.Wait)
	case "reorder_components":
		var req ReorderComponentsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		w, err := h.editor.ReorderComponents(ctx, req.PageID, req.IDs)
		if err != nil {
			return nil, err
		}
		return h.await(ctx, w, req.Wait)
	case "render_page":
		var req RenderPageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		tree, err := h.editor.RenderTree(req.PageID)
		if err != nil {
			return nil, err
		}
		return RenderPageResponse{PageID: req.PageID, Components: tree}, nil

	case "select_component":
		var req SelectComponentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.SetSelectedComponent(req.ComponentID); err != nil {
			return nil, err
		}
		return h.editor.UI(), nil
	case "set_ui":
		var req SetUIParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.PreviewMode != nil {
			h.editor.SetPreviewMode(*req.PreviewMode)
		}
		if req.ToggleDarkMode {
			h.editor.ToggleDarkMode()
		}
		if req.ToggleSidebar {
			h.editor.ToggleSidebar()
		}
		return h.editor.UI(), nil

	case "generate_site":
		var req GenerateSiteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		site, w, err := h.editor.GenerateSite(ctx, req.Request)
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return GeneratedSiteResponse{GeneratedSite: *site, Write: status}, nil
	case "enhance_component":
		var req EnhanceComponentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		comp, w, err := h.editor.EnhanceComponent(ctx, req.PageID, req.ComponentID, req.Instructions)
		if err != nil {
			return nil, err
		}
		return h.componentResponse(ctx, comp, w, req.Wait)
	case "generate_copy":
		var req GenerateCopyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		text, err := h.editor.GenerateCopy(ctx, req.ContentType, req.Brief)
		if err != nil {
			return nil, err
		}
		return CopyResponse{Text: text}, nil

	case "retry_writes":
		var req WriteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		n, w, err := h.editor.Retry(ctx)
		if err != nil {
			return nil, err
		}
		status, err := h.await(ctx, w, req.Wait)
		if err != nil {
			return nil, err
		}
		return RetryResponse{Retried: n, Write: status}, nil
	case "get_recent_activity":
		var req RecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.editor.RecentActivity(ctx, req.ProjectID, req.Limit)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func (h *Handler) componentResponse(ctx context.Context, comp document.Component, w *editor.Write, wait bool) (any, error) {
	status, err := h.await(ctx, w, wait)
	if err != nil {
		return nil, err
	}
	return ComponentResponse{Component: comp, Write: status}, nil
}

// await reports the state of w, blocking for it when wait is set. A failed
// durable write is reported in the status rather than as a call error: the
// local edit was applied and stays pending for retry_writes.
func (h *Handler) await(ctx context.Context, w *editor.Write, wait bool) (WriteStatus, error) {
	if w == nil {
		return WriteStatus{Durable: true}, nil
	}
	if wait {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return WriteStatus{}, ctx.Err()
		}
	}
	select {
	case <-w.Done():
	default:
		return WriteStatus{}, nil
	}
	if err := w.Err(); err != nil {
		h.logger.Debug("write reported to client", "error", err)
		apiErr := MapError(err)
		if apiErr == nil {
			apiErr = &APIError{Code: CodePersistenceFailed, Message: err.Error(), Retryable: true, Err: err}
		}
		return WriteStatus{Error: apiErr}, nil
	}
	return WriteStatus{Durable: true}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	params = bytes.TrimSpace(params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return document.Invalid("params", document.ErrInvalidInput, "%v", err)
	}
	return nil
}
