package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatdata/internal/domain"
	"chatdata/internal/kv/memory"
	"chatdata/internal/store"
)

func newChatService(t *testing.T) (*ChatService, *store.Store) {
	t.Helper()
	st := store.New(memory.New(), store.Options{Logger: testLogger()})
	clock := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &ChatService{
		Store: st,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	return svc, st
}

func TestSendTextAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService(t)
	chatID := domain.ChatID("user_bob", "user_alice")

	first, err := svc.SendText(ctx, chatID, "user_alice", "alice", "hey")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, domain.MessageText, first.Type)

	second, err := svc.SendText(ctx, chatID, "user_bob", "bob", "hi back")
	require.NoError(t, err)

	history, err := svc.History(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, first.ID, history[0].ID)
	require.Equal(t, second.ID, history[1].ID)

	lm, ok, err := svc.LastMessage(ctx, chatID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hi back", lm.Text)
	require.Equal(t, "user_bob", lm.SenderID)
}

func TestSendEmptyTextRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService(t)

	_, err := svc.SendText(ctx, "a_b", "a", "alice", "   ")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSendMediaMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService(t)

	img, err := svc.SendImage(ctx, "a_b", "a", "alice", "file:///photos/1.jpg")
	require.NoError(t, err)
	require.Equal(t, domain.MessageImage, img.Type)
	require.Equal(t, "file:///photos/1.jpg", img.ImageURI)
	require.Empty(t, img.Text)

	aud, err := svc.SendAudio(ctx, "a_b", "b", "bob", "file:///audio/1.m4a")
	require.NoError(t, err)
	require.Equal(t, domain.MessageAudio, aud.Type)
	require.Equal(t, "file:///audio/1.m4a", aud.AudioURL)

	_, err = svc.SendImage(ctx, "a_b", "a", "alice", "")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.SendAudio(ctx, "a_b", "a", "alice", "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteRefreshesLastMessage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChatService(t)

	first, err := svc.SendText(ctx, "a_b", "a", "alice", "first")
	require.NoError(t, err)
	latest, err := svc.SendText(ctx, "a_b", "b", "bob", "latest")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "a_b", latest.ID))

	lm, ok, err := svc.LastMessage(ctx, "a_b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", lm.Text)

	require.NoError(t, svc.Delete(ctx, "a_b", first.ID))
	_, ok, err = svc.LastMessage(ctx, "a_b")
	require.NoError(t, err)
	require.False(t, ok)
}
