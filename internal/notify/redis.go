package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisChannel = "presskit:content-updated"

// RedisNotifier relays signals between processes over a Redis pub/sub
// channel. The message body is the publishing process's origin id.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
	subs    subscribers

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisClient builds the client used by the notifier.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisNotifier subscribes to channel and starts relaying messages from
// other processes to local subscribers.
func NewRedisNotifier(ctx context.Context, client *redis.Client, channel string, logger *zap.Logger) (*RedisNotifier, error) {
	if client == nil {
		return nil, errors.New("notify: redis client is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultRedisChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("notify: subscribe %s: %w", channel, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n := &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  newOrigin(),
		logger:  logger,
		pubsub:  pubsub,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go n.loop(runCtx)
	return n, nil
}

func (n *RedisNotifier) loop(ctx context.Context) {
	defer close(n.done)
	ch := n.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload == n.origin {
				continue
			}
			n.logger.Debug("redis change signal", zap.String("channel", msg.Channel))
			n.subs.fire()
		case <-ctx.Done():
			return
		}
	}
}

func (n *RedisNotifier) Publish(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, n.origin).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(fn func()) func() { return n.subs.add(fn) }

// Close stops relaying. The client stays open; its owner closes it.
func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pubsub == nil {
		return nil
	}
	n.cancel()
	err := n.pubsub.Close()
	n.pubsub = nil
	<-n.done
	n.subs.clear()
	return err
}
