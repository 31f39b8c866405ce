package editor

import (
	"context"
	"log/slog"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/generation"
)

// GeneratedSite is the project and page created from a generation.
type GeneratedSite struct {
	Project document.Project              `json:"project"`
	Page    document.Page                 `json:"page"`
	Dropped []generation.DroppedComponent `json:"dropped,omitempty"`
}

// GenerateSite asks the generator for a site and submits the result exactly
// as a user-authored project and page creation. An invalid response creates
// nothing.
func (c *Controller) GenerateSite(ctx context.Context, req generation.Request) (*GeneratedSite, *Write, error) {
	ownerID, err := c.requireUser()
	if err != nil {
		return nil, nil, err
	}
	if c.generator == nil {
		return nil, nil, generation.ErrNotConfigured
	}

	result, err := c.generator.GenerateSite(ctx, req)
	if err != nil {
		c.metrics.RecordGeneration("site", false, 0)
		return nil, nil, err
	}
	c.metrics.RecordGeneration("site", true, len(result.Dropped))

	proj, projectWrite, err := c.CreateProject(ctx, result.Project)
	if err != nil {
		return nil, nil, err
	}
	page, pageWrite, err := c.CreatePage(ctx, proj.ID, result.Page)
	if err != nil {
		return nil, projectWrite, err
	}
	if _, err := c.OpenPage(ctx, page.ID); err != nil {
		c.logger.Warn("generated page opened without live updates", slog.String("page_id", page.ID), slog.Any("error", err))
	}

	w := joinWrites(projectWrite, pageWrite)
	go func() {
		<-w.Done()
		if w.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.writeTimeout)
		defer cancel()
		c.recordActivity(ctx, ownerID, proj.ID, page.ID, activity.TypeSiteGenerated, "Generated site "+proj.Name, 1)
	}()

	return &GeneratedSite{Project: proj, Page: page, Dropped: result.Dropped}, w, nil
}

// EnhanceComponent rewrites a component per instructions. The component's id,
// type and children are never taken from the generator.
func (c *Controller) EnhanceComponent(ctx context.Context, pageID, componentID, instructions string) (document.Component, *Write, error) {
	c.mu.Lock()
	i, _, err := c.localPageLocked(pageID)
	if err != nil {
		c.mu.Unlock()
		return document.Component{}, nil, err
	}
	original, ok := document.FindComponent(c.pageList[i].Components, componentID)
	original = original.Clone()
	c.mu.Unlock()
	if !ok {
		return document.Component{}, nil, componentNotFound(componentID)
	}
	if c.generator == nil {
		return document.Component{}, nil, generation.ErrNotConfigured
	}

	enhanced, err := c.generator.EnhanceComponent(ctx, original, instructions)
	if err != nil {
		c.metrics.RecordGeneration("enhance", false, 0)
		return document.Component{}, nil, err
	}
	c.metrics.RecordGeneration("enhance", true, 0)

	var merged document.Component
	w, err := c.mutateComponents(pageID, activity.TypeComponentEnhanced, "Enhanced "+string(original.Type), func(tree []document.Component) ([]document.Component, error) {
		current, ok := document.FindComponent(tree, componentID)
		if !ok {
			return nil, componentNotFound(componentID)
		}
		next := enhanced.Clone()
		next.ID = current.ID
		next.Type = current.Type
		next.Children = current.Children
		merged = next
		out, _ := document.ReplaceComponent(tree, next)
		return out, nil
	})
	if err != nil {
		return document.Component{}, nil, err
	}
	return merged.Clone(), w, nil
}

// GenerateCopy returns generated website text. Nothing is persisted.
func (c *Controller) GenerateCopy(ctx context.Context, contentType, brief string) (string, error) {
	if _, err := c.requireUser(); err != nil {
		return "", err
	}
	if c.generator == nil {
		return "", generation.ErrNotConfigured
	}
	text, err := c.generator.GenerateCopy(ctx, contentType, brief)
	c.metrics.RecordGeneration("copy", err == nil, 0)
	return text, err
}

// RecentActivity lists the persisted changes of a project, newest first.
func (c *Controller) RecentActivity(ctx context.Context, projectID string, limit int) ([]activity.ActivityEntry, error) {
	ownerID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if c.activity == nil {
		return []activity.ActivityEntry{}, nil
	}
	entries, err := c.activity.GetRecentActivity(ctx, ownerID, activity.ListActivityOptions{ProjectID: projectID, Limit: limit})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: "activity", ID: projectID, Err: err}
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return entries, nil
}
