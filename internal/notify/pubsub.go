package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

const originAttribute = "origin"

// PubSubNotifier relays signals over a Cloud Pub/Sub topic. Each process
// needs its own subscription so every instance sees every signal.
type PubSubNotifier struct {
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	origin string
	logger *zap.Logger
	subs   subscribers

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ Notifier = (*PubSubNotifier)(nil)

// NewPubSubNotifier publishes to topic and, when sub is non-nil, starts
// receiving from it.
func NewPubSubNotifier(ctx context.Context, topic *pubsub.Topic, sub *pubsub.Subscription, logger *zap.Logger) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("notify: pubsub topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n := &PubSubNotifier{
		topic:  topic,
		sub:    sub,
		origin: newOrigin(),
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if sub == nil {
		close(n.done)
		return n, nil
	}
	go n.receive(runCtx)
	return n, nil
}

func (n *PubSubNotifier) receive(ctx context.Context) {
	defer close(n.done)
	err := n.sub.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		msg.Ack()
		if msg.Attributes[originAttribute] == n.origin {
			return
		}
		n.subs.fire()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		n.logger.Warn("pubsub change receiver stopped", zap.String("subscription", n.sub.ID()), zap.Error(err))
	}
}

func (n *PubSubNotifier) Publish(ctx context.Context) error {
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       []byte("content.changed"),
		Attributes: map[string]string{originAttribute: n.origin},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("notify: pubsub publish: %w", err)
	}
	return nil
}

func (n *PubSubNotifier) Subscribe(fn func()) func() { return n.subs.add(fn) }

// Close stops receiving and flushes pending publishes.
func (n *PubSubNotifier) Close() error {
	n.once.Do(func() {
		n.cancel()
		<-n.done
		n.topic.Stop()
		n.subs.clear()
	})
	return nil
}
