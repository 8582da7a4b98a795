package service

import (
	"context"

	"chatdata/internal/domain"
)

type NotificationsStore interface {
	AppendNotification(ctx context.Context, uid string, n domain.Notification) (domain.Notification, error)
	Notifications(ctx context.Context, uid string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, uid, notificationID string) error
	SubscribeNotifications(uid string, fn func([]domain.Notification)) func()
}

// NotificationsService is the append-mostly feed facade; the only mutation
// besides append is flipping the read flag.
type NotificationsService struct {
	Store NotificationsStore
}

func (s *NotificationsService) Notify(ctx context.Context, uid, ntype, text string, data map[string]string) (domain.Notification, error) {
	if ntype == "" {
		return domain.Notification{}, domain.NewValidationError(map[string]string{"type": "required"})
	}
	return s.Store.AppendNotification(ctx, uid, domain.Notification{
		Type: ntype,
		Text: text,
		Data: data,
	})
}

func (s *NotificationsService) List(ctx context.Context, uid string) ([]domain.Notification, error) {
	return s.Store.Notifications(ctx, uid)
}

func (s *NotificationsService) MarkRead(ctx context.Context, uid, notificationID string) error {
	return s.Store.MarkNotificationRead(ctx, uid, notificationID)
}

func (s *NotificationsService) Watch(uid string, fn func([]domain.Notification)) func() {
	return s.Store.SubscribeNotifications(uid, fn)
}
