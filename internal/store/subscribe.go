package store

import (
	"context"
	"sync"
	"time"

	"chatdata/internal/domain"
)

// Snapshot is a full materialized view of a collection at delivery time,
// never a diff.
type Snapshot []Document

// Subscribe registers fn for repeated snapshot delivery: one initial
// snapshot after a short delay (never synchronously, so the caller's current
// task always finishes first), then one per polling interval. The returned
// cancel stops all future deliveries and releases the timer; calling it more
// than once is a no-op, and calling it from inside fn is safe.
//
// Polling stands in for a real change feed here. Delivery is isolated in one
// goroutine per subscription, so swapping the ticker for event-driven push
// would not change this API.
func (c *Collection) Subscribe(fn func(Snapshot)) (cancel func()) {
	return subscribePoll(c.s, func(ctx context.Context) ([]Document, error) {
		return c.Get(ctx)
	}, func(docs []Document) {
		fn(Snapshot(docs))
	})
}

// SubscribeMessages delivers the chat's sorted message list on the polling
// schedule.
func (s *Store) SubscribeMessages(chatID string, fn func([]domain.Message)) (cancel func()) {
	return subscribePoll(s, func(ctx context.Context) ([]domain.Message, error) {
		return s.Messages(ctx, chatID)
	}, fn)
}

// SubscribeFriendRequests delivers the recipient's request list on the
// polling schedule.
func (s *Store) SubscribeFriendRequests(uid string, fn func([]domain.FriendRequest)) (cancel func()) {
	return subscribePoll(s, func(ctx context.Context) ([]domain.FriendRequest, error) {
		return s.FriendRequests(ctx, uid)
	}, fn)
}

// SubscribeNotifications delivers the recipient's feed on the polling
// schedule.
func (s *Store) SubscribeNotifications(uid string, fn func([]domain.Notification)) (cancel func()) {
	return subscribePoll(s, func(ctx context.Context) ([]domain.Notification, error) {
		return s.Notifications(ctx, uid)
	}, fn)
}

func subscribePoll[T any](s *Store, fetch func(context.Context) ([]T, error), fn func([]T)) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once

	deliver := func() {
		items, err := fetch(context.Background())
		if err != nil {
			s.logger.Error("snapshot delivery failed", "err", err)
			return
		}
		fn(items)
	}

	go func() {
		delay := time.NewTimer(s.initialDelay)
		defer delay.Stop()
		select {
		case <-delay.C:
		case <-stop:
			return
		}
		deliver()

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deliver()
			case <-stop:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}
