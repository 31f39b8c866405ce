// Package notify fans out persistence change events so subscriptions can
// re-read their snapshots.
package notify

import (
	"context"
	"sync"
)

// Change describes a committed write. Empty ID means "any entity of Kind in
// ProjectID", as emitted by cascade deletes.
type Change struct {
	Kind      string `json:"kind"`
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
}

// Notifier publishes changes and delivers them to local listeners.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Listen(fn func(Change)) (cancel func())
}

// Local is an in-process Notifier.
type Local struct {
	mu        sync.RWMutex
	listeners map[uint64]func(Change)
	next      uint64
}

// NewLocal creates an empty in-process notifier.
func NewLocal() *Local {
	return &Local{listeners: make(map[uint64]func(Change))}
}

// Publish delivers change synchronously to every listener.
func (l *Local) Publish(_ context.Context, change Change) error {
	l.mu.RLock()
	fns := make([]func(Change), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
	return nil
}

// Listen registers fn until cancel is called.
func (l *Local) Listen(fn func(Change)) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.listeners[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}
