package editor

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
)

// watchPages subscribes to the pages of projectID, replacing any previous
// project subscription.
func (c *Controller) watchPages(projectID string) error {
	return c.watch(&c.pagesSub, repository.PageFilter{ProjectID: projectID}, projectID, "")
}

// watchPage subscribes to a single page, replacing any previous page
// subscription.
func (c *Controller) watchPage(projectID, pageID string) error {
	return c.watch(&c.pageSub, repository.PageFilter{ProjectID: projectID, ID: pageID}, projectID, pageID)
}

func (c *Controller) watch(slot *subscription, filter repository.PageFilter, projectID, pageID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.subGen++
	gen := c.subGen
	previous := slot.cancel
	*slot = subscription{gen: gen}
	c.mu.Unlock()

	if previous != nil {
		previous()
	}

	cancel, err := c.pages.Subscribe(c.ctx, filter, repository.ListOrder{Field: repository.OrderCreatedAt}, func(pages []document.Page) {
		c.applyPageSnapshot(gen, projectID, pageID, pages)
	})
	if err != nil {
		c.logger.Warn("page subscription failed", slog.String("project_id", projectID), slog.Any("error", err))
		return storeError("subscribe", repository.KindPage, projectID, err)
	}

	c.mu.Lock()
	if slot.gen == gen {
		slot.cancel = cancel
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	cancel()
	return nil
}

// releaseSubsLocked detaches both subscriptions and returns their
// cancellations.
func (c *Controller) releaseSubsLocked() []repository.Unsubscribe {
	cancels := []repository.Unsubscribe{c.pagesSub.cancel, c.pageSub.cancel}
	c.pagesSub = subscription{}
	c.pageSub = subscription{}
	return cancels
}

func (c *Controller) releasePageSubLocked() repository.Unsubscribe {
	cancel := c.pageSub.cancel
	c.pageSub = subscription{}
	return cancel
}

// applyPageSnapshot merges a subscription snapshot. Callbacks from a
// subscription that has since been replaced are ignored.
func (c *Controller) applyPageSnapshot(gen uint64, projectID, pageID string, remote []document.Page) {
	c.mu.Lock()
	sub := c.pagesSub
	if pageID != "" {
		sub = c.pageSub
	}
	if sub.gen != gen || c.project == nil || c.project.ID != projectID {
		c.mu.Unlock()
		return
	}
	applied, deferred := c.mergePagesLocked(remote, pageID)
	var cancel repository.Unsubscribe
	if c.openPageID != "" && c.pageIndexLocked(c.openPageID) < 0 {
		c.openPageID = ""
		c.ui.SelectedComponentID = ""
		cancel = c.releasePageSubLocked()
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.metrics.RecordSnapshot(string(repository.KindPage), applied, deferred)
	if deferred > 0 {
		c.logger.Debug("snapshot deferred",
			slog.String("project_id", projectID),
			slog.Int("applied", applied),
			slog.Int("deferred", deferred),
		)
	}
}

// mergePagesLocked reconciles remote pages into the local page list. When
// only is set, the snapshot covers that single page and others are left
// untouched.
//
// A remote page replaces the local copy only when the entity is settled (no
// write in flight, no failed write) and its revision is at least the highest
// revision acknowledged locally. A local page missing from the snapshot is
// removed only when settled and previously confirmed by the store.
func (c *Controller) mergePagesLocked(remote []document.Page, only string) (applied, deferred int) {
	inScope := func(id string) bool { return only == "" || id == only }

	remoteByID := make(map[string]document.Page, len(remote))
	for _, p := range remote {
		if p.ProjectID == c.project.ID && inScope(p.ID) {
			remoteByID[p.ID] = p
		}
	}
	seen := make(map[string]bool, len(remoteByID))
	for id := range remoteByID {
		seen[id] = true
	}

	next := make([]document.Page, 0, len(c.pageList)+len(remoteByID))
	for _, local := range c.pageList {
		if !inScope(local.ID) {
			next = append(next, local)
			continue
		}
		key := pageKey(local.ID)
		s := c.entities[key]
		r, ok := remoteByID[local.ID]
		delete(remoteByID, local.ID)
		switch {
		case !ok && s.keepsMissing():
			next = append(next, local)
			deferred++
		case !ok:
			delete(c.entities, key)
		case s.accepts(r.Revision):
			next = append(next, r)
			c.confirmLocked(key, r.Revision)
			applied++
		default:
			next = append(next, local)
			deferred++
		}
	}

	for _, r := range remote {
		if _, ok := remoteByID[r.ID]; !ok {
			continue
		}
		delete(remoteByID, r.ID)
		key := pageKey(r.ID)
		if !c.entities[key].accepts(r.Revision) {
			deferred++
			continue
		}
		next = append(next, r)
		c.confirmLocked(key, r.Revision)
		applied++
	}

	if only == "" {
		for key, s := range c.entities {
			if key.kind == repository.KindPage && s.deleted && s.settled() && !seen[key.id] {
				delete(c.entities, key)
			}
		}
	}

	sortPages(next)
	c.pageList = next
	return applied, deferred
}

func sortPages(pages []document.Page) {
	slices.SortStableFunc(pages, func(a, b document.Page) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// reconcileProjectLocked merges a store copy of the open project.
func (c *Controller) reconcileProjectLocked(remote document.Project) {
	if c.project == nil || c.project.ID != remote.ID {
		return
	}
	key := projectKey(remote.ID)
	if c.entities[key].accepts(remote.Revision) {
		p := remote
		c.project = &p
		c.confirmLocked(key, remote.Revision)
	}
}

func (c *Controller) pageIndexLocked(id string) int {
	for i, p := range c.pageList {
		if p.ID == id {
			return i
		}
	}
	return -1
}
