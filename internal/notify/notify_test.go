package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestLocal_PublishListen(t *testing.T) {
	n := NewLocal()
	var got []Change
	cancel := n.Listen(func(c Change) { got = append(got, c) })

	require.NoError(t, n.Publish(context.Background(), Change{Kind: "page", ID: "pg1"}))
	cancel()
	cancel()
	require.NoError(t, n.Publish(context.Background(), Change{Kind: "page", ID: "pg2"}))

	require.Equal(t, []Change{{Kind: "page", ID: "pg1"}}, got)
}

func TestRedis_DeliversAcrossNotifiers(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	publisher, err := NewRedis(ctx, "redis://"+s.Addr(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { publisher.Close() })

	listener, err := NewRedis(ctx, "redis://"+s.Addr(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	var mu sync.Mutex
	var got []Change
	listener.Listen(func(c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	change := Change{Kind: "page", ID: "pg1", ProjectID: "p1", OwnerID: "u1"}
	require.NoError(t, publisher.Publish(ctx, change))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, change, got[0])
}

func TestRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url://", nil)
	require.Error(t, err)
}
