package sqlite

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/internal/repository"
)

// subscribe delivers an initial snapshot and then a fresh one after every
// matching change. Bursts of changes coalesce into a single re-read, and
// snapshots are delivered from one goroutine so fn never runs concurrently
// with itself. The subscription ends when ctx is done or the returned
// function is called.
func subscribe[T any](
	ctx context.Context,
	db *DB,
	kind repository.Kind,
	match func(notify.Change) bool,
	list func(context.Context) ([]T, error),
	fn func([]T),
) (repository.Unsubscribe, error) {
	initial, err := list(ctx)
	if err != nil {
		return nil, err
	}

	dirty := make(chan struct{}, 1)
	stop := make(chan struct{})
	cancelListen := db.notifier.Listen(func(change notify.Change) {
		if change.Kind != string(kind) || !match(change) {
			return
		}
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancelListen()
			close(stop)
		})
	}

	readCtx := context.WithoutCancel(ctx)
	go func() {
		defer unsubscribe()
		fn(initial)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-dirty:
			}
			snapshot, err := list(readCtx)
			if err != nil {
				db.logger.Warn("subscription snapshot failed", slog.String("kind", string(kind)), slog.Any("error", err))
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			fn(snapshot)
		}
	}()

	return unsubscribe, nil
}
