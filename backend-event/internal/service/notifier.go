package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	pkgredis "github.com/wafflestudio/moiming-web/pkg/redis"
	"go.uber.org/zap"
)

// RegistrationChannelKey is the pub/sub channel for one registration's updates
func RegistrationChannelKey(registrationPublicID string) string {
	return "moiming:registration:" + registrationPublicID
}

// Notifier fans registration updates out to stream subscribers
type Notifier interface {
	Notify(ctx context.Context, update *dto.WaitlistUpdate) error
	Subscribe(ctx context.Context, registrationPublicID string) (Subscription, error)
}

// Subscription delivers updates until closed
type Subscription interface {
	Updates() <-chan *dto.WaitlistUpdate
	Close() error
}

// RedisNotifier delivers updates across instances with Redis pub/sub
type RedisNotifier struct {
	client *pkgredis.Client
}

// NewRedisNotifier creates a new RedisNotifier
func NewRedisNotifier(client *pkgredis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publishes update on the registration's channel
func (n *RedisNotifier) Notify(ctx context.Context, update *dto.WaitlistUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, RegistrationChannelKey(update.RegistrationID), payload).Err()
}

// Subscribe waits for the subscription to be confirmed before returning
func (n *RedisNotifier) Subscribe(ctx context.Context, registrationPublicID string) (Subscription, error) {
	pubsub := n.client.Subscribe(ctx, RegistrationChannelKey(registrationPublicID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &redisSubscription{closer: pubsub.Close, updates: make(chan *dto.WaitlistUpdate, 8)}
	go func() {
		defer close(sub.updates)
		for msg := range pubsub.Channel() {
			var update dto.WaitlistUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				logger.Warn("dropping malformed registration update", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case sub.updates <- &update:
			default:
				// slow reader; it resyncs on the next update
			}
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	closer  func() error
	updates chan *dto.WaitlistUpdate
}

func (s *redisSubscription) Updates() <-chan *dto.WaitlistUpdate { return s.updates }
func (s *redisSubscription) Close() error                        { return s.closer() }

// LocalNotifier fans out within one process. Used when Redis is disabled.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[string]map[*localSubscription]struct{}
}

// NewLocalNotifier creates a new LocalNotifier
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[string]map[*localSubscription]struct{})}
}

// Notify delivers update to every current subscriber without blocking
func (n *LocalNotifier) Notify(_ context.Context, update *dto.WaitlistUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs[update.RegistrationID] {
		select {
		case sub.updates <- update:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for one registration
func (n *LocalNotifier) Subscribe(_ context.Context, registrationPublicID string) (Subscription, error) {
	sub := &localSubscription{
		notifier: n,
		key:      registrationPublicID,
		updates:  make(chan *dto.WaitlistUpdate, 8),
	}
	n.mu.Lock()
	if n.subs[registrationPublicID] == nil {
		n.subs[registrationPublicID] = make(map[*localSubscription]struct{})
	}
	n.subs[registrationPublicID][sub] = struct{}{}
	n.mu.Unlock()
	return sub, nil
}

type localSubscription struct {
	notifier *LocalNotifier
	key      string
	updates  chan *dto.WaitlistUpdate
	once     sync.Once
}

func (s *localSubscription) Updates() <-chan *dto.WaitlistUpdate { return s.updates }

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		n := s.notifier
		n.mu.Lock()
		delete(n.subs[s.key], s)
		if len(n.subs[s.key]) == 0 {
			delete(n.subs, s.key)
		}
		n.mu.Unlock()
		close(s.updates)
	})
	return nil
}
