// Package editor owns the live document graph: the signed-in user, the open
// project with its pages, the open page and the UI flags. Mutations apply to
// the graph immediately and are persisted asynchronously; subscription
// snapshots are merged back without reverting unconfirmed local edits.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/generation"
	"github.com/rpggio/pagesmith/internal/repository"
)

const defaultWriteTimeout = 30 * time.Second

// Generator produces site drafts and component edits from an external
// generative service.
type Generator interface {
	GenerateSite(ctx context.Context, req generation.Request) (*generation.Result, error)
	EnhanceComponent(ctx context.Context, c document.Component, instructions string) (document.Component, error)
	GenerateCopy(ctx context.Context, contentType, brief string) (string, error)
}

// ActivityLogger records and lists persisted changes.
type ActivityLogger interface {
	LogActivity(ctx context.Context, ownerID string, entry *activity.ActivityEntry) error
	GetRecentActivity(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// MetricsCollector receives editor measurements.
type MetricsCollector interface {
	RecordWrite(kind, op string, err error, d time.Duration)
	RecordSnapshot(kind string, applied, deferred int)
	RecordGeneration(operation string, accepted bool, dropped int)
}

type noopMetrics struct{}

func (noopMetrics) RecordWrite(string, string, error, time.Duration) {}
func (noopMetrics) RecordSnapshot(string, int, int)                  {}
func (noopMetrics) RecordGeneration(string, bool, int)               {}

// Config wires a Controller. The three repositories are required.
type Config struct {
	Users        repository.UserRepository
	Projects     repository.ProjectRepository
	Pages        repository.PageRepository
	Activity     ActivityLogger
	Generator    Generator
	Metrics      MetricsCollector
	Logger       *slog.Logger
	WriteTimeout time.Duration
}

// UIState holds editor flags that are never persisted.
type UIState struct {
	SelectedComponentID string `json:"selected_component_id,omitempty"`
	PreviewMode         bool   `json:"preview_mode"`
	DarkMode            bool   `json:"dark_mode"`
	SidebarOpen         bool   `json:"sidebar_open"`
}

type subscription struct {
	gen    uint64
	cancel repository.Unsubscribe
}

// Controller is the single writable owner of the document graph. It is safe
// for concurrent use; the mutex is never held across repository calls.
type Controller struct {
	users        repository.UserRepository
	projects     repository.ProjectRepository
	pages        repository.PageRepository
	activity     ActivityLogger
	generator    Generator
	metrics      MetricsCollector
	logger       *slog.Logger
	writeTimeout time.Duration
	newID        func() string

	ctx    context.Context
	cancel context.CancelFunc
	writes sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	user       *document.User
	project    *document.Project
	pageList   []document.Page          // pages of project, created_at ascending
	detached   map[string]document.Page // pages created outside the open project, until seen in the store
	openPageID string
	ui         UIState
	entities   map[entityKey]*entityState
	lanes      map[entityKey]chan struct{}
	subGen     uint64
	pagesSub   subscription
	pageSub    subscription
}

// New creates a Controller. Close releases its subscriptions and waits for
// outstanding writes.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		users:        cfg.Users,
		projects:     cfg.Projects,
		pages:        cfg.Pages,
		activity:     cfg.Activity,
		generator:    cfg.Generator,
		metrics:      metrics,
		logger:       logger,
		writeTimeout: timeout,
		newID:        uuid.NewString,
		ctx:          ctx,
		cancel:       cancel,
		ui:           UIState{SidebarOpen: true},
		entities:     make(map[entityKey]*entityState),
		lanes:        make(map[entityKey]chan struct{}),
		detached:     make(map[string]document.Page),
	}
}

// Close ends all subscriptions and waits for in-flight writes to finish.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancels := c.releaseSubsLocked()
	c.mu.Unlock()

	runAll(cancels)
	c.cancel()
	c.writes.Wait()
	return nil
}

// State is a deep copy of the document graph and pending write status.
type State struct {
	User       *document.User    `json:"user,omitempty"`
	Project    *document.Project `json:"project,omitempty"`
	Pages      []document.Page   `json:"pages"`
	OpenPageID string            `json:"open_page_id,omitempty"`
	UI         UIState           `json:"ui"`
	Pending    []PendingWrite    `json:"pending,omitempty"`
}

// PendingWrite describes an entity with writes in flight or a failed write
// awaiting Retry.
type PendingWrite struct {
	Kind     repository.Kind `json:"kind"`
	ID       string          `json:"id"`
	InFlight int             `json:"in_flight"`
	Failed   string          `json:"failed,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Snapshot returns a copy of the current graph.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Pages:      clonePages(c.pageList),
		OpenPageID: c.openPageID,
		UI:         c.ui,
	}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	if c.project != nil {
		p := *c.project
		st.Project = &p
	}
	for _, key := range c.sortedKeys() {
		s := c.entities[key]
		if s.inflight == 0 && s.failed == opNone {
			continue
		}
		pw := PendingWrite{Kind: key.kind, ID: key.id, InFlight: s.inflight}
		if s.failed != opNone {
			pw.Failed = s.failed.String()
			if s.err != nil {
				pw.Error = s.err.Error()
			}
		}
		st.Pending = append(st.Pending, pw)
	}
	return st
}

// requireUserLocked returns the signed-in user's id.
func (c *Controller) requireUserLocked() (string, error) {
	if c.closed {
		return "", ErrClosed
	}
	if c.user == nil {
		return "", ErrUnauthenticated
	}
	return c.user.ID, nil
}

func (c *Controller) requireUser() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requireUserLocked()
}

// sameUserLocked re-checks the signed-in user after a repository call made
// without the lock.
func (c *Controller) sameUserLocked(ownerID string) error {
	id, err := c.requireUserLocked()
	if err != nil {
		return err
	}
	if id != ownerID {
		return ErrUnauthenticated
	}
	return nil
}

// resetGraphLocked forgets the open project and returns the subscription
// cancellations to run once the lock is released.
func (c *Controller) resetGraphLocked() []repository.Unsubscribe {
	cancels := c.releaseSubsLocked()
	if c.project != nil {
		c.forgetProjectPagesLocked()
	}
	c.project = nil
	c.pageList = nil
	c.openPageID = ""
	c.ui.SelectedComponentID = ""
	return cancels
}

// forgetProjectPagesLocked drops bookkeeping for the open project's pages.
// Pages with writes still in flight are marked deleted so their failures are
// not queued for retry.
func (c *Controller) forgetProjectPagesLocked() {
	for _, p := range c.pageList {
		key := pageKey(p.ID)
		s, ok := c.entities[key]
		if !ok {
			continue
		}
		if !s.confirmed && !s.deleted && s.acked == 0 && (s.inflight > 0 || s.failed == opCreate) {
			c.detached[p.ID] = clonePage(p)
		}
		if s.inflight == 0 && s.failed == opNone {
			delete(c.entities, key)
		}
	}
	for key, s := range c.entities {
		if key.kind == repository.KindPage && s.deleted && s.inflight == 0 && s.failed == opNone {
			delete(c.entities, key)
		}
	}
}

func runAll(fns []repository.Unsubscribe) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func clonePage(p document.Page) document.Page {
	p.Components = document.CloneComponents(p.Components)
	if p.SEO.Keywords != nil {
		p.SEO.Keywords = append([]string(nil), p.SEO.Keywords...)
	}
	return p
}

func clonePages(pages []document.Page) []document.Page {
	out := make([]document.Page, len(pages))
	for i, p := range pages {
		out[i] = clonePage(p)
	}
	return out
}
