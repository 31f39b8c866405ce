package editor

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
)

// opKind orders write operations by retry precedence.
type opKind int

const (
	opNone opKind = iota
	opUpdate
	opCreate
	opDelete
)

func (o opKind) String() string {
	switch o {
	case opUpdate:
		return "update"
	case opCreate:
		return "create"
	case opDelete:
		return "delete"
	}
	return "none"
}

type entityKey struct {
	kind repository.Kind
	id   string
}

func projectKey(id string) entityKey { return entityKey{kind: repository.KindProject, id: id} }
func pageKey(id string) entityKey    { return entityKey{kind: repository.KindPage, id: id} }

// entityState is the per-entity revision bookkeeping used by reconciliation.
type entityState struct {
	inflight  int    // writes issued but not completed
	acked     int64  // highest revision returned by a completed write or seen in a snapshot
	confirmed bool   // seen in a snapshot or store read at least once
	deleted   bool   // deleted locally
	failed    opKind // highest-precedence failed write awaiting Retry
	err       error
	retry     *writeOp
}

func (s *entityState) settled() bool {
	return s.inflight == 0 && s.failed == opNone
}

// accepts reports whether a remote copy at rev may replace the local value.
func (s *entityState) accepts(rev int64) bool {
	if s == nil {
		return true
	}
	return !s.deleted && s.settled() && rev >= s.acked
}

// keepsMissing reports whether a local entity absent from a snapshot stays.
func (s *entityState) keepsMissing() bool {
	if s == nil {
		return false
	}
	return !s.settled() || !s.confirmed
}

func (c *Controller) entity(key entityKey) *entityState {
	s, ok := c.entities[key]
	if !ok {
		s = &entityState{}
		c.entities[key] = s
	}
	return s
}

func (c *Controller) confirmLocked(key entityKey, rev int64) {
	s := c.entity(key)
	if rev > s.acked {
		s.acked = rev
	}
	s.confirmed = true
}

var kindRank = map[repository.Kind]int{
	repository.KindUser:    0,
	repository.KindProject: 1,
	repository.KindPage:    2,
}

// sortedKeys orders entities parents first, so retried project creates are
// queued ahead of the page creates that depend on them.
func (c *Controller) sortedKeys() []entityKey {
	keys := make([]entityKey, 0, len(c.entities))
	for key := range c.entities {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b entityKey) int {
		if n := kindRank[a.kind] - kindRank[b.kind]; n != 0 {
			return n
		}
		return strings.Compare(a.id, b.id)
	})
	return keys
}

// writeOp is one durable write against a single entity.
type writeOp struct {
	op        opKind
	key       entityKey
	after     []entityKey // entities whose earlier writes must finish first
	ownerID   string
	projectID string
	pageID    string
	activity  activity.ActivityType
	summary   string
	run       func(ctx context.Context) (int64, error)
}

// Write tracks an asynchronous durable write.
type Write struct {
	done chan struct{}
	err  error
}

func newWrite() *Write {
	return &Write{done: make(chan struct{})}
}

func (w *Write) resolve(err error) {
	w.err = err
	close(w.done)
}

// Done is closed when the write has completed.
func (w *Write) Done() <-chan struct{} {
	return w.done
}

// Err returns the outcome of a completed write, or nil while it is pending.
func (w *Write) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write completes or ctx is done.
func (w *Write) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// joinWrites completes when every write has completed, with their errors joined.
func joinWrites(ws ...*Write) *Write {
	joined := newWrite()
	go func() {
		var errs []error
		for _, w := range ws {
			<-w.done
			if w.err != nil {
				errs = append(errs, w.err)
			}
		}
		joined.resolve(errors.Join(errs...))
	}()
	return joined
}

// submitLocked starts w after earlier writes to the same entity, and to the
// entities in w.after, have completed. Durable writes to one entity are thus
// submitted and completed in issue order.
func (c *Controller) submitLocked(w writeOp) *Write {
	s := c.entity(w.key)
	s.inflight++

	var waits []chan struct{}
	for _, key := range append([]entityKey{w.key}, w.after...) {
		if ch, ok := c.lanes[key]; ok {
			waits = append(waits, ch)
		}
	}
	lane := make(chan struct{})
	c.lanes[w.key] = lane

	result := newWrite()
	c.writes.Add(1)
	go c.runWrite(w, waits, lane, result)
	return result
}

func (c *Controller) runWrite(w writeOp, waits []chan struct{}, lane chan struct{}, result *Write) {
	defer c.writes.Done()
	for _, ch := range waits {
		<-ch
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.writeTimeout)
	defer cancel()

	start := time.Now()
	rev, err := w.run(ctx)
	c.metrics.RecordWrite(string(w.key.kind), w.op.String(), err, time.Since(start))

	err = c.finishWrite(w, lane, rev, err)
	close(lane)
	if err == nil {
		c.recordActivity(ctx, w.ownerID, w.projectID, w.pageID, w.activity, w.summary, rev)
	}
	result.resolve(err)
}

func (c *Controller) finishWrite(w writeOp, lane chan struct{}, rev int64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lanes[w.key] == lane {
		delete(c.lanes, w.key)
	}
	s := c.entity(w.key)
	s.inflight--

	if err == nil {
		if rev > s.acked {
			s.acked = rev
		}
		if w.op >= s.failed {
			s.failed = opNone
			s.err = nil
			s.retry = nil
		}
		c.setLocalRevisionLocked(w.key, rev)
		if w.op == opDelete && w.key.kind == repository.KindProject {
			c.forgetDetachedLocked(w.key.id)
			if s.settled() {
				delete(c.entities, w.key)
			}
		}
		return nil
	}

	c.logger.Warn("durable write failed",
		slog.String("kind", string(w.key.kind)),
		slog.String("id", w.key.id),
		slog.String("op", w.op.String()),
		slog.Any("error", err),
	)

	if errors.Is(err, repository.ErrNotFound) {
		if w.key.kind == repository.KindPage {
			delete(c.detached, w.key.id)
		}
		return storeError(w.op.String(), w.key.kind, w.key.id, err)
	}
	if w.op == opDelete || !s.deleted {
		if w.op >= s.failed {
			s.failed = w.op
			retry := w
			s.retry = &retry
		}
		s.err = err
	}
	return storeError(w.op.String(), w.key.kind, w.key.id, err)
}

// setLocalRevisionLocked records an acknowledged revision on the local copy
// when no other write to it is pending.
func (c *Controller) setLocalRevisionLocked(key entityKey, rev int64) {
	if s := c.entities[key]; s == nil || s.inflight > 0 {
		return
	}
	switch key.kind {
	case repository.KindProject:
		if c.project != nil && c.project.ID == key.id && rev > c.project.Revision {
			c.project.Revision = rev
		}
	case repository.KindPage:
		if i := c.pageIndexLocked(key.id); i >= 0 && rev > c.pageList[i].Revision {
			c.pageList[i].Revision = rev
		}
	}
}

func (c *Controller) recordActivity(ctx context.Context, ownerID, projectID, pageID string, typ activity.ActivityType, summary string, rev int64) {
	if c.activity == nil || typ == "" || projectID == "" {
		return
	}
	entry := &activity.ActivityEntry{
		ProjectID:    projectID,
		ActivityType: typ,
		Summary:      summary,
		Revision:     rev,
	}
	if pageID != "" {
		entry.PageID = &pageID
	}
	if err := c.activity.LogActivity(ctx, ownerID, entry); err != nil {
		c.logger.Warn("activity log failed", slog.String("type", string(typ)), slog.Any("error", err))
	}
}

func (c *Controller) createProjectWrite(p document.Project) writeOp {
	return writeOp{
		op:        opCreate,
		key:       projectKey(p.ID),
		ownerID:   p.OwnerID,
		projectID: p.ID,
		activity:  activity.TypeProjectCreated,
		summary:   "Created project " + p.Name,
		run: func(ctx context.Context) (int64, error) {
			record := p
			if err := c.projects.Create(ctx, &record); err != nil {
				return 0, err
			}
			return record.Revision, nil
		},
	}
}

func fullProjectPatch(p document.Project) document.ProjectPatch {
	return document.ProjectPatch{
		Name:        &p.Name,
		Description: &p.Description,
		Theme:       &p.Theme,
		Published:   &p.Published,
		Domain:      &p.Domain,
	}
}

// updateProjectWrite persists the full mutable state of p, so a later write
// supersedes any earlier one.
func (c *Controller) updateProjectWrite(p document.Project, summary string) writeOp {
	patch := fullProjectPatch(p)
	return writeOp{
		op:        opUpdate,
		key:       projectKey(p.ID),
		ownerID:   p.OwnerID,
		projectID: p.ID,
		activity:  activity.TypeProjectUpdated,
		summary:   summary,
		run: func(ctx context.Context) (int64, error) {
			return c.projects.Update(ctx, p.ID, patch)
		},
	}
}

// deleteProjectWrite runs after pending writes to pages, so the cascade sees
// every page created before it.
func (c *Controller) deleteProjectWrite(ownerID string, p document.Project, pages []entityKey) writeOp {
	return writeOp{
		op:        opDelete,
		key:       projectKey(p.ID),
		after:     pages,
		ownerID:   ownerID,
		projectID: p.ID,
		activity:  activity.TypeProjectDeleted,
		summary:   "Deleted project " + p.Name,
		run: func(ctx context.Context) (int64, error) {
			return 0, c.projects.Delete(ctx, p.ID)
		},
	}
}

func (c *Controller) createPageWrite(ownerID string, p document.Page) writeOp {
	p = clonePage(p)
	return writeOp{
		op:        opCreate,
		key:       pageKey(p.ID),
		after:     []entityKey{projectKey(p.ProjectID)},
		ownerID:   ownerID,
		projectID: p.ProjectID,
		pageID:    p.ID,
		activity:  activity.TypePageCreated,
		summary:   "Created page " + p.Name,
		run: func(ctx context.Context) (int64, error) {
			record := clonePage(p)
			if err := c.pages.Create(ctx, &record); err != nil {
				return 0, err
			}
			return record.Revision, nil
		},
	}
}

// createDetachedPageWrite re-creates a page of a project that is not open.
// Its slug is resolved again against the stored siblings when the write runs,
// so a slug taken in the meantime gets the next free suffix.
func (c *Controller) createDetachedPageWrite(ownerID string, p document.Page) writeOp {
	w := c.createPageWrite(ownerID, p)
	w.run = func(ctx context.Context) (int64, error) {
		stored, err := c.pages.List(ctx, repository.PageFilter{ProjectID: p.ProjectID}, repository.ListOrder{})
		if err != nil {
			return 0, err
		}
		c.mu.Lock()
		slug, err := document.ResolveSlug(c.detachedSiblingsLocked(p.ProjectID, stored), p.Slug, p.Name, p.ID)
		if err == nil && slug != p.Slug {
			p.Slug = slug
			if _, ok := c.detached[p.ID]; ok {
				c.detached[p.ID] = clonePage(p)
			}
		}
		c.mu.Unlock()
		if err != nil {
			return 0, err
		}

		record := clonePage(p)
		if err := c.pages.Create(ctx, &record); err != nil {
			return 0, err
		}
		return record.Revision, nil
	}
	return w
}

func (c *Controller) forgetDetachedLocked(projectID string) {
	for id, p := range c.detached {
		if p.ProjectID == projectID {
			delete(c.detached, id)
		}
	}
}

func fullPagePatch(p document.Page) document.PagePatch {
	components := document.CloneComponents(p.Components)
	seo := p.SEO
	return document.PagePatch{
		Name:       &p.Name,
		Slug:       &p.Slug,
		Components: &components,
		SEO:        &seo,
	}
}

// updatePageWrite persists the full mutable state of p.
func (c *Controller) updatePageWrite(ownerID string, p document.Page, typ activity.ActivityType, summary string) writeOp {
	patch := fullPagePatch(p)
	return writeOp{
		op:        opUpdate,
		key:       pageKey(p.ID),
		ownerID:   ownerID,
		projectID: p.ProjectID,
		pageID:    p.ID,
		activity:  typ,
		summary:   summary,
		run: func(ctx context.Context) (int64, error) {
			return c.pages.Update(ctx, p.ID, patch)
		},
	}
}

func (c *Controller) deletePageWrite(ownerID string, p document.Page) writeOp {
	return writeOp{
		op:        opDelete,
		key:       pageKey(p.ID),
		ownerID:   ownerID,
		projectID: p.ProjectID,
		pageID:    p.ID,
		activity:  activity.TypePageDeleted,
		summary:   "Deleted page " + p.Name,
		run: func(ctx context.Context) (int64, error) {
			return 0, c.pages.Delete(ctx, p.ID)
		},
	}
}

// Retry re-issues every failed write that has nothing else in flight.
// Creates and updates of entities in the open graph are rebuilt from their
// current local state. It returns the number of writes issued and a handle
// that completes when all of them have.
func (c *Controller) Retry(ctx context.Context) (int, *Write, error) {
	c.mu.Lock()
	if _, err := c.requireUserLocked(); err != nil {
		c.mu.Unlock()
		return 0, nil, err
	}
	var writes []*Write
	for _, key := range c.sortedKeys() {
		s := c.entities[key]
		if s.failed == opNone || s.inflight > 0 || s.retry == nil {
			continue
		}
		op := c.retryOpLocked(key, s)
		s.failed = opNone
		s.err = nil
		s.retry = nil
		writes = append(writes, c.submitLocked(op))
	}
	c.mu.Unlock()

	c.logger.Info("retrying failed writes", slog.Int("count", len(writes)))
	return len(writes), joinWrites(writes...), nil
}

func (c *Controller) retryOpLocked(key entityKey, s *entityState) writeOp {
	last := *s.retry
	if s.failed == opDelete {
		return last
	}
	switch key.kind {
	case repository.KindProject:
		if c.project == nil || c.project.ID != key.id {
			return last
		}
		if s.failed == opCreate {
			return c.createProjectWrite(*c.project)
		}
		return c.updateProjectWrite(*c.project, last.summary)
	case repository.KindPage:
		i := c.pageIndexLocked(key.id)
		if i < 0 {
			if p, ok := c.detached[key.id]; ok && s.failed == opCreate {
				return c.createDetachedPageWrite(last.ownerID, p)
			}
			return last
		}
		page := c.pageList[i]
		if s.failed == opCreate {
			if slug, err := document.ResolveSlug(c.pageList, page.Slug, page.Name, page.ID); err == nil && slug != page.Slug {
				page.Slug = slug
				c.pageList[i] = page
			}
			return c.createPageWrite(last.ownerID, page)
		}
		return c.updatePageWrite(last.ownerID, page, last.activity, last.summary)
	}
	return last
}
