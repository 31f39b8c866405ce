package editor

import (
	"context"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
)

// mutateComponents replaces the component tree of a page of the open project
// with the result of fn, after validating it, and persists the page.
func (c *Controller) mutateComponents(pageID string, typ activity.ActivityType, summary string, fn func(tree []document.Component) ([]document.Component, error)) (*Write, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ownerID, err := c.localPageLocked(pageID)
	if err != nil {
		return nil, err
	}
	page := c.pageList[i]

	tree, err := fn(page.Components)
	if err != nil {
		return nil, err
	}
	if err := document.ValidateTree(tree); err != nil {
		return nil, err
	}
	tree, err = document.Canonicalize(tree)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		tree = []document.Component{}
	}

	page.Components = tree
	page.UpdatedAt = document.Now()
	c.pageList[i] = page
	c.dropStaleSelectionLocked()
	return c.submitLocked(c.updatePageWrite(ownerID, page, typ, summary)), nil
}

func componentNotFound(id string) error {
	return document.Invalid("component.id", document.ErrComponentNotFound, "%s", id)
}

// AddComponent appends comp to the top level of a page. An empty id is
// assigned; a duplicate id is rejected.
func (c *Controller) AddComponent(ctx context.Context, pageID string, comp document.Component) (document.Component, *Write, error) {
	comp = c.prepareComponent(comp)
	w, err := c.mutateComponents(pageID, activity.TypePageUpdated, "Added "+string(comp.Type), func(tree []document.Component) ([]document.Component, error) {
		return append(document.CloneComponents(tree), comp), nil
	})
	if err != nil {
		return document.Component{}, nil, err
	}
	return comp, w, nil
}

// AddChildComponent appends comp under parentID.
func (c *Controller) AddChildComponent(ctx context.Context, pageID, parentID string, comp document.Component) (document.Component, *Write, error) {
	comp = c.prepareComponent(comp)
	w, err := c.mutateComponents(pageID, activity.TypePageUpdated, "Added "+string(comp.Type), func(tree []document.Component) ([]document.Component, error) {
		out, ok := document.AppendChild(tree, parentID, comp)
		if !ok {
			return nil, document.Invalid("parent_id", document.ErrComponentNotFound, "%s", parentID)
		}
		return out, nil
	})
	if err != nil {
		return document.Component{}, nil, err
	}
	return comp, w, nil
}

// UpdateComponent replaces the component with comp.ID. When comp.Children is
// nil the existing children are kept. Applying the same payload twice leaves
// the same tree as applying it once.
func (c *Controller) UpdateComponent(ctx context.Context, pageID string, comp document.Component) (document.Component, *Write, error) {
	var updated document.Component
	w, err := c.mutateComponents(pageID, activity.TypePageUpdated, "Updated "+string(comp.Type), func(tree []document.Component) ([]document.Component, error) {
		existing, ok := document.FindComponent(tree, comp.ID)
		if !ok {
			return nil, componentNotFound(comp.ID)
		}
		next := comp.Clone()
		if next.Children == nil {
			next.Children = existing.Children
		}
		if next.Props == nil {
			next.Props = document.Bag{}
		}
		if next.Styles == nil {
			next.Styles = document.Bag{}
		}
		updated = next
		out, _ := document.ReplaceComponent(tree, next)
		return out, nil
	})
	if err != nil {
		return document.Component{}, nil, err
	}
	return updated.Clone(), w, nil
}

// DeleteComponent removes a component and its subtree.
func (c *Controller) DeleteComponent(ctx context.Context, pageID, componentID string) (*Write, error) {
	return c.mutateComponents(pageID, activity.TypePageUpdated, "Deleted component", func(tree []document.Component) ([]document.Component, error) {
		out, ok := document.RemoveComponent(tree, componentID)
		if !ok {
			return nil, componentNotFound(componentID)
		}
		return out, nil
	})
}

// ReorderComponents arranges the top-level components in ids order.
func (c *Controller) ReorderComponents(ctx context.Context, pageID string, ids []string) (*Write, error) {
	return c.mutateComponents(pageID, activity.TypePageUpdated, "Reordered components", func(tree []document.Component) ([]document.Component, error) {
		return document.Reorder(tree, ids)
	})
}

// RenderTree returns the component tree of a page of the open project in
// render order.
func (c *Controller) RenderTree(pageID string) ([]document.Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, _, err := c.localPageLocked(pageID)
	if err != nil {
		return nil, err
	}
	return document.CloneComponents(c.pageList[i].Components), nil
}
