package store

import (
	"context"
	"time"

	"chatdata/internal/domain"
)

// AppendNotification stores n in the recipient's feed, filling in id and
// timestamp when missing.
func (s *Store) AppendNotification(ctx context.Context, uid string, n domain.Notification) (domain.Notification, error) {
	if uid == "" {
		return domain.Notification{}, domain.NewValidationError(map[string]string{"uid": "required"})
	}
	if n.ID == "" {
		n.ID = newID("notification")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.notifs.mu.Lock()
	defer s.notifs.mu.Unlock()
	if err := loadMap(ctx, s, &s.notifs); err != nil {
		return domain.Notification{}, err
	}
	s.notifs.items[uid] = append(s.notifs.items[uid], cloneNotification(n))
	flushMap(ctx, s, &s.notifs)
	return n, nil
}

// Notifications returns the recipient's feed in arrival order.
func (s *Store) Notifications(ctx context.Context, uid string) ([]domain.Notification, error) {
	s.notifs.mu.Lock()
	defer s.notifs.mu.Unlock()
	if err := loadMap(ctx, s, &s.notifs); err != nil {
		return nil, err
	}
	list := s.notifs.items[uid]
	out := make([]domain.Notification, 0, len(list))
	for _, n := range list {
		out = append(out, cloneNotification(n))
	}
	return out, nil
}

// MarkNotificationRead flips the read flag; an unknown id reports
// ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, uid, notificationID string) error {
	s.notifs.mu.Lock()
	defer s.notifs.mu.Unlock()
	if err := loadMap(ctx, s, &s.notifs); err != nil {
		return err
	}
	list := s.notifs.items[uid]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Read = true
			flushMap(ctx, s, &s.notifs)
			return nil
		}
	}
	return domain.ErrNotFound
}

func cloneNotification(n domain.Notification) domain.Notification {
	cp := n
	if n.Data != nil {
		cp.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			cp.Data[k] = v
		}
	}
	return cp
}
