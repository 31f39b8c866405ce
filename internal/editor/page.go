package editor

import (
	"context"
	"slices"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
)

// localPageLocked finds a page of the open project.
func (c *Controller) localPageLocked(pageID string) (int, string, error) {
	ownerID, err := c.requireUserLocked()
	if err != nil {
		return -1, "", err
	}
	if c.project == nil {
		return -1, "", notFound(repository.KindPage, pageID)
	}
	i := c.pageIndexLocked(pageID)
	if i < 0 {
		return -1, "", notFound(repository.KindPage, pageID)
	}
	return i, ownerID, nil
}

// prepareComponents gives every component without an id a fresh one and
// replaces nil bags with empty ones.
func (c *Controller) prepareComponents(tree []document.Component) []document.Component {
	out := document.CloneComponents(tree)
	for i := range out {
		out[i] = c.prepareComponent(out[i])
	}
	return out
}

func (c *Controller) prepareComponent(comp document.Component) document.Component {
	comp = comp.Clone()
	if strings.TrimSpace(comp.ID) == "" {
		comp.ID = c.newID()
	}
	if comp.Props == nil {
		comp.Props = document.Bag{}
	}
	if comp.Styles == nil {
		comp.Styles = document.Bag{}
	}
	for i := range comp.Children {
		comp.Children[i] = c.prepareComponent(comp.Children[i])
	}
	return comp
}

// CreatePage adds a page to a project of the current user. The slug (or the
// slugified name when empty) is suffixed until it is unique in the project.
func (c *Controller) CreatePage(ctx context.Context, projectID string, draft document.PageDraft) (document.Page, *Write, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Components = c.prepareComponents(draft.Components)
	if err := document.ValidatePageDraft(draft); err != nil {
		return document.Page{}, nil, err
	}

	proj, current, err := c.resolveProject(ctx, projectID)
	if err != nil {
		return document.Page{}, nil, err
	}
	var stored []document.Page
	if !current {
		stored, err = c.pages.List(ctx, repository.PageFilter{ProjectID: projectID}, repository.ListOrder{})
		if err != nil {
			return document.Page{}, nil, storeError("list", repository.KindPage, projectID, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sameUserLocked(proj.OwnerID); err != nil {
		return document.Page{}, nil, err
	}
	open := c.project != nil && c.project.ID == projectID
	siblings := c.pageList
	if !open {
		siblings = c.detachedSiblingsLocked(projectID, stored)
	}
	slug, err := document.ResolveSlug(siblings, draft.Slug, draft.Name, "")
	if err != nil {
		return document.Page{}, nil, err
	}

	seo := draft.SEO
	if seo.Keywords == nil {
		seo.Keywords = []string{}
	}
	now := document.Now()
	page, err := document.Canonicalize(document.Page{
		ID:         c.newID(),
		ProjectID:  projectID,
		Name:       draft.Name,
		Slug:       slug,
		Components: draft.Components,
		SEO:        seo,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return document.Page{}, nil, err
	}
	if page.Components == nil {
		page.Components = []document.Component{}
	}

	if open {
		c.pageList = append(c.pageList, page)
		sortPages(c.pageList)
	} else {
		c.detached[page.ID] = clonePage(page)
	}
	return clonePage(page), c.submitLocked(c.createPageWrite(proj.OwnerID, page)), nil
}

// detachedSiblingsLocked returns the stored pages of a project that is not
// open plus the pages created in it that the store did not list yet. Detached
// pages the store already lists are forgotten.
func (c *Controller) detachedSiblingsLocked(projectID string, stored []document.Page) []document.Page {
	siblings := slices.Clone(stored)
	seen := make(map[string]bool, len(stored))
	for _, p := range stored {
		seen[p.ID] = true
	}
	for id, p := range c.detached {
		if p.ProjectID != projectID {
			continue
		}
		if seen[id] {
			delete(c.detached, id)
			continue
		}
		siblings = append(siblings, p)
	}
	return siblings
}

// adoptDetachedLocked moves the detached pages of the open project into the
// page list, where reconciliation keeps them until the store confirms them.
func (c *Controller) adoptDetachedLocked() {
	if c.project == nil {
		return
	}
	for id, p := range c.detached {
		if p.ProjectID != c.project.ID {
			continue
		}
		delete(c.detached, id)
		if c.pageIndexLocked(id) >= 0 {
			continue
		}
		if s := c.entities[pageKey(id)]; s != nil && s.deleted {
			continue
		}
		c.pageList = append(c.pageList, p)
	}
	sortPages(c.pageList)
}

// UpdatePage patches a page of the open project. A new slug is resolved the
// same way as on creation.
func (c *Controller) UpdatePage(ctx context.Context, pageID string, patch document.PagePatch) (document.Page, *Write, error) {
	if patch.IsEmpty() {
		return document.Page{}, nil, document.Invalid("patch", document.ErrInvalidInput, "nothing to update")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i, ownerID, err := c.localPageLocked(pageID)
	if err != nil {
		return document.Page{}, nil, err
	}
	page := c.pageList[i]

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return document.Page{}, nil, document.Invalid("page.name", document.ErrInvalidInput, "name is required")
		}
		patch.Name = &name
	}
	if patch.Slug != nil {
		name := page.Name
		if patch.Name != nil {
			name = *patch.Name
		}
		slug, err := document.ResolveSlug(c.pageList, *patch.Slug, name, pageID)
		if err != nil {
			return document.Page{}, nil, err
		}
		patch.Slug = &slug
	}
	if patch.Components != nil {
		components := c.prepareComponents(*patch.Components)
		if err := document.ValidateTree(components); err != nil {
			return document.Page{}, nil, err
		}
		patch.Components = &components
	}
	if patch.SEO != nil && patch.SEO.Keywords == nil {
		seo := *patch.SEO
		seo.Keywords = []string{}
		patch.SEO = &seo
	}

	next := patch.Apply(page)
	next.UpdatedAt = document.Now()
	next, err = document.Canonicalize(next)
	if err != nil {
		return document.Page{}, nil, err
	}
	if next.Components == nil {
		next.Components = []document.Component{}
	}
	c.pageList[i] = next
	c.dropStaleSelectionLocked()
	w := c.submitLocked(c.updatePageWrite(ownerID, next, activity.TypePageUpdated, "Updated page "+next.Name))
	return clonePage(next), w, nil
}

// DeletePage removes a page of the open project.
func (c *Controller) DeletePage(ctx context.Context, pageID string) (*Write, error) {
	c.mu.Lock()
	i, ownerID, err := c.localPageLocked(pageID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	page := c.pageList[i]
	c.pageList = append(c.pageList[:i:i], c.pageList[i+1:]...)
	c.entity(pageKey(pageID)).deleted = true

	var cancel repository.Unsubscribe
	if c.openPageID == pageID {
		c.openPageID = ""
		c.ui.SelectedComponentID = ""
		cancel = c.releasePageSubLocked()
	}
	w := c.submitLocked(c.deletePageWrite(ownerID, page))
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return w, nil
}

// OpenPage makes pageID the page being edited and subscribes to it.
func (c *Controller) OpenPage(ctx context.Context, pageID string) (document.Page, error) {
	c.mu.Lock()
	i, _, err := c.localPageLocked(pageID)
	if err != nil {
		c.mu.Unlock()
		return document.Page{}, err
	}
	page := clonePage(c.pageList[i])
	changed := c.openPageID != pageID
	if changed {
		c.openPageID = pageID
		c.ui.SelectedComponentID = ""
	}
	needWatch := changed || c.pageSub.gen == 0
	c.mu.Unlock()

	if needWatch {
		if err := c.watchPage(page.ProjectID, pageID); err != nil {
			return page, err
		}
	}
	return page, nil
}

// CurrentPage returns the open page.
func (c *Controller) CurrentPage() (document.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openPageID == "" {
		return document.Page{}, false
	}
	i := c.pageIndexLocked(c.openPageID)
	if i < 0 {
		return document.Page{}, false
	}
	return clonePage(c.pageList[i]), true
}
