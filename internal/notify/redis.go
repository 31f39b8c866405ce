package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Pub/Sub channel changes travel on.
const DefaultChannel = "pagesmith:changes"

// Redis publishes changes over Redis Pub/Sub so every process sharing the
// store sees every write.
type Redis struct {
	client  *redis.Client
	channel string
	local   *Local
	pubsub  *redis.PubSub
	logger  *slog.Logger
	done    chan struct{}
	once    sync.Once
}

// NewRedis connects to redisURL and starts receiving changes.
func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	n, err := NewRedisWithClient(ctx, client, DefaultChannel, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return n, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(ctx context.Context, client *redis.Client, channel string, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	n := &Redis{
		client:  client,
		channel: channel,
		local:   NewLocal(),
		pubsub:  pubsub,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go n.receive()
	return n, nil
}

func (n *Redis) receive() {
	defer close(n.done)
	for msg := range n.pubsub.Channel() {
		var change Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			n.logger.Warn("discarding malformed change", "error", err)
			continue
		}
		_ = n.local.Publish(context.Background(), change)
	}
}

// Publish sends change to every process listening on the channel.
func (n *Redis) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen registers fn for changes received from Redis.
func (n *Redis) Listen(fn func(Change)) func() {
	return n.local.Listen(fn)
}

// Close stops receiving and closes the client.
func (n *Redis) Close() error {
	var err error
	n.once.Do(func() {
		err = n.pubsub.Close()
		<-n.done
		if cerr := n.client.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
