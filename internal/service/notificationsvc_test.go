package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chatdata/internal/domain"
	"chatdata/internal/kv/memory"
	"chatdata/internal/store"
)

func TestNotifyListMarkRead(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.New(), store.Options{Logger: testLogger()})
	svc := &NotificationsService{Store: st}

	n, err := svc.Notify(ctx, "user_bob", "friend_request", "alice sent you a friend request", map[string]string{"fromUid": "user_alice"})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)
	require.False(t, n.Read)

	list, err := svc.List(ctx, "user_bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "user_alice", list[0].Data["fromUid"])

	require.NoError(t, svc.MarkRead(ctx, "user_bob", n.ID))
	list, err = svc.List(ctx, "user_bob")
	require.NoError(t, err)
	require.True(t, list[0].Read)

	require.ErrorIs(t, svc.MarkRead(ctx, "user_bob", "notification_missing"), domain.ErrNotFound)

	_, err = svc.Notify(ctx, "user_bob", "", "no type", nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}
