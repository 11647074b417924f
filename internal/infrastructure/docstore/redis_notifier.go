package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultNotifyChannel = "pocketbook:documents"
	defaultCloseTimeout  = 5 * time.Second
)

// RedisNotifier carries change notices between processes over Redis Pub/Sub
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	mu        sync.Mutex
	listeners map[int]func(ChangeNotice)
	nextID    int
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
}

// RedisNotifierOption configures a RedisNotifier
type RedisNotifierOption func(*RedisNotifier)

// WithNotifyChannel sets the Pub/Sub channel name
func WithNotifyChannel(channel string) RedisNotifierOption {
	return func(n *RedisNotifier) {
		if channel != "" {
			n.channel = channel
		}
	}
}

// WithNotifierLogger sets the logger
func WithNotifierLogger(logger *zap.Logger) RedisNotifierOption {
	return func(n *RedisNotifier) {
		n.logger = logger
	}
}

// NewRedisNotifierWithClient uses an existing client; the caller keeps ownership of it
func NewRedisNotifierWithClient(client *redis.Client, opts ...RedisNotifierOption) *RedisNotifier {
	n := &RedisNotifier{
		client:    client,
		channel:   defaultNotifyChannel,
		logger:    zap.NewNop(),
		listeners: make(map[int]func(ChangeNotice)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends the notice to every process subscribed to the channel
func (n *RedisNotifier) Publish(ctx context.Context, notice ChangeNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal change notice: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish change notice",
			zap.String("channel", n.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish change notice: %w", err)
	}
	n.logger.Debug("Published change notice",
		zap.String("collection", notice.Collection),
		zap.String("document", notice.Document),
		zap.String("action", string(notice.Action)))
	return nil
}

// Listen registers fn; notices arrive once Start has subscribed
func (n *RedisNotifier) Listen(fn func(ChangeNotice)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// Start subscribes to the channel and dispatches notices until ctx ends or Close is called
func (n *RedisNotifier) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.cancelFn != nil {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	n.cancelFn = cancel
	n.doneCh = make(chan struct{})
	doneCh := n.doneCh
	n.mu.Unlock()

	pubsub := n.client.Subscribe(subCtx, n.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		_ = pubsub.Close()
		cancel()
		close(doneCh)
		n.mu.Lock()
		n.cancelFn = nil
		n.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	n.logger.Info("Subscribed to change notice channel", zap.String("channel", n.channel))

	go func() {
		defer close(doneCh)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				n.logger.Info("Change notice subscription stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					n.logger.Warn("Change notice channel closed")
					return
				}
				var notice ChangeNotice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					n.logger.Error("Failed to unmarshal change notice",
						zap.String("payload", msg.Payload),
						zap.Error(err))
					continue
				}
				n.dispatch(notice)
			}
		}
	}()
	return nil
}

func (n *RedisNotifier) dispatch(notice ChangeNotice) {
	n.mu.Lock()
	fns := make([]func(ChangeNotice), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.logger.Error("Panic in change notice listener", zap.Any("panic", r))
				}
			}()
			fn(notice)
		}()
	}
}

// Close stops the subscription; the client stays open for its owner
func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	cancelFn, doneCh := n.cancelFn, n.doneCh
	n.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-doneCh:
		case <-time.After(defaultCloseTimeout):
			n.logger.Warn("Timeout waiting for subscription to stop")
		}
	}
	return nil
}

var _ Notifier = (*RedisNotifier)(nil)
