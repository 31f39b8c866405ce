package editor

import (
	"context"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
)

// resolveProject returns the project id names, checking that it belongs to
// the current user. current reports whether it is the open project.
func (c *Controller) resolveProject(ctx context.Context, id string) (proj document.Project, current bool, err error) {
	c.mu.Lock()
	ownerID, err := c.requireUserLocked()
	if err != nil {
		c.mu.Unlock()
		return document.Project{}, false, err
	}
	if c.project != nil && c.project.ID == id {
		proj = *c.project
		c.mu.Unlock()
		return proj, true, nil
	}
	if s := c.entities[projectKey(id)]; s != nil && s.deleted {
		c.mu.Unlock()
		return document.Project{}, false, notFound(repository.KindProject, id)
	}
	c.mu.Unlock()

	stored, err := c.projects.Get(ctx, id)
	if err != nil {
		return document.Project{}, false, storeError("read", repository.KindProject, id, err)
	}
	if stored.OwnerID != ownerID {
		return document.Project{}, false, notFound(repository.KindProject, id)
	}
	return *stored, false, nil
}

// CreateProject allocates a project for the current user and opens it. The
// returned Write completes when the project is durably stored.
func (c *Controller) CreateProject(ctx context.Context, draft document.ProjectDraft) (document.Project, *Write, error) {
	if err := document.ValidateProjectDraft(draft); err != nil {
		return document.Project{}, nil, err
	}
	theme := document.DefaultTheme()
	if draft.Theme != nil {
		theme = *draft.Theme
	}

	c.mu.Lock()
	ownerID, err := c.requireUserLocked()
	if err != nil {
		c.mu.Unlock()
		return document.Project{}, nil, err
	}
	now := document.Now()
	proj, err := document.Canonicalize(document.Project{
		ID:          c.newID(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(draft.Name),
		Description: draft.Description,
		Theme:       theme,
		Published:   draft.Published,
		Domain:      draft.Domain,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		c.mu.Unlock()
		return document.Project{}, nil, err
	}

	cancels := c.resetGraphLocked()
	p := proj
	c.project = &p
	c.pageList = []document.Page{}
	w := c.submitLocked(c.createProjectWrite(proj))
	c.mu.Unlock()

	runAll(cancels)
	if err := c.watchPages(proj.ID); err != nil {
		c.logger.Warn("project opened without live updates", "project_id", proj.ID, "error", err)
	}
	return proj, w, nil
}

// UpdateProject applies patch to a project of the current user. The open
// project is updated in place; any other project is patched from its stored
// copy.
func (c *Controller) UpdateProject(ctx context.Context, id string, patch document.ProjectPatch) (document.Project, *Write, error) {
	if patch.IsEmpty() {
		return document.Project{}, nil, document.Invalid("patch", document.ErrInvalidInput, "nothing to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return document.Project{}, nil, document.Invalid("project.name", document.ErrInvalidInput, "name is required")
	}

	base, _, err := c.resolveProject(ctx, id)
	if err != nil {
		return document.Project{}, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sameUserLocked(base.OwnerID); err != nil {
		return document.Project{}, nil, err
	}
	current := c.project != nil && c.project.ID == id
	if current {
		base = *c.project
	}
	next := patch.Apply(base)
	if patch.Name != nil {
		next.Name = strings.TrimSpace(next.Name)
	}
	next.UpdatedAt = document.Now()
	next, err = document.Canonicalize(next)
	if err != nil {
		return document.Project{}, nil, err
	}
	if current {
		p := next
		c.project = &p
	}
	return next, c.submitLocked(c.updateProjectWrite(next, "Updated project "+next.Name)), nil
}

// DeleteProject deletes a project of the current user together with all of
// its pages. Deleting the open project closes it.
func (c *Controller) DeleteProject(ctx context.Context, id string) (*Write, error) {
	proj, _, err := c.resolveProject(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if err := c.sameUserLocked(proj.OwnerID); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	var cancels []repository.Unsubscribe
	var pages []entityKey
	if c.project != nil && c.project.ID == id {
		for _, p := range c.pageList {
			pages = append(pages, pageKey(p.ID))
			if s := c.entities[pageKey(p.ID)]; s != nil {
				s.deleted = true
				s.failed, s.err, s.retry = opNone, nil, nil
			}
		}
		cancels = c.resetGraphLocked()
	}
	c.entity(projectKey(id)).deleted = true
	w := c.submitLocked(c.deleteProjectWrite(proj.OwnerID, proj, pages))
	c.mu.Unlock()

	runAll(cancels)
	return w, nil
}

// OpenProject makes id the open project, loading its pages and subscribing
// to their changes. Opening the already open project keeps local edits.
func (c *Controller) OpenProject(ctx context.Context, id string) (document.Project, []document.Page, error) {
	proj, current, err := c.resolveProject(ctx, id)
	if err != nil {
		return document.Project{}, nil, err
	}

	pages, err := c.pages.List(ctx, repository.PageFilter{ProjectID: id}, repository.ListOrder{Field: repository.OrderCreatedAt})
	if err != nil {
		return document.Project{}, nil, storeError("list", repository.KindPage, id, err)
	}

	c.mu.Lock()
	if err := c.sameUserLocked(proj.OwnerID); err != nil {
		c.mu.Unlock()
		return document.Project{}, nil, err
	}
	var cancels []repository.Unsubscribe
	if c.project == nil || c.project.ID != id {
		cancels = c.resetGraphLocked()
		p := proj
		c.project = &p
		c.pageList = []document.Page{}
		c.confirmLocked(projectKey(id), proj.Revision)
	} else if !current {
		c.reconcileProjectLocked(proj)
	}
	c.mergePagesLocked(pages, "")
	c.adoptDetachedLocked()
	needWatch := c.pagesSub.gen == 0
	opened := *c.project
	list := clonePages(c.pageList)
	c.mu.Unlock()

	runAll(cancels)
	if needWatch {
		if err := c.watchPages(id); err != nil {
			return opened, list, err
		}
	}
	return opened, list, nil
}

// ListProjects returns the current user's projects, most recently updated
// first. The open project reflects unconfirmed local edits.
func (c *Controller) ListProjects(ctx context.Context) ([]document.Project, error) {
	ownerID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	stored, err := c.projects.List(ctx, repository.ProjectFilter{OwnerID: ownerID}, repository.ListOrder{Field: repository.OrderUpdatedAt, Desc: true})
	if err != nil {
		return nil, storeError("list", repository.KindProject, ownerID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sameUserLocked(ownerID); err != nil {
		return nil, err
	}

	out := make([]document.Project, 0, len(stored)+1)
	found := false
	for _, p := range stored {
		if s := c.entities[projectKey(p.ID)]; s != nil && s.deleted {
			continue
		}
		if c.project != nil && c.project.ID == p.ID {
			found = true
			c.reconcileProjectLocked(p)
			p = *c.project
		}
		out = append(out, p)
	}
	if c.project != nil && !found {
		if s := c.entities[projectKey(c.project.ID)]; s != nil && !s.confirmed {
			out = append([]document.Project{*c.project}, out...)
		}
	}
	return out, nil
}

// CurrentProject returns the open project and its pages.
func (c *Controller) CurrentProject() (document.Project, []document.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return document.Project{}, nil, false
	}
	return *c.project, clonePages(c.pageList), true
}
