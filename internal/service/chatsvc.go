package service

import (
	"context"
	"strings"
	"time"

	"chatdata/internal/domain"
)

type ChatStore interface {
	AppendMessage(ctx context.Context, chatID string, m domain.Message) (domain.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	Messages(ctx context.Context, chatID string) ([]domain.Message, error)
	LastMessage(ctx context.Context, chatID string) (domain.LastMessage, bool, error)
	SubscribeMessages(chatID string, fn func([]domain.Message)) func()
}

// ChatService is the messaging facade the chat screen talks to. Chats are
// addressed with domain.ChatID; there is no separate membership check, the
// derived id is the membership.
type ChatService struct {
	Store ChatStore
	Now   func() time.Time
}

func (s *ChatService) SendText(ctx context.Context, chatID, senderID, senderName, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, domain.NewValidationError(map[string]string{"text": "required"})
	}
	return s.send(ctx, chatID, domain.Message{
		Type:       domain.MessageText,
		Text:       text,
		SenderID:   senderID,
		SenderName: senderName,
	})
}

// SendImage stores the capture component's URI reference; the engine never
// reads the media itself.
func (s *ChatService) SendImage(ctx context.Context, chatID, senderID, senderName, imageURI string) (domain.Message, error) {
	if imageURI == "" {
		return domain.Message{}, domain.NewValidationError(map[string]string{"imageUri": "required"})
	}
	return s.send(ctx, chatID, domain.Message{
		Type:       domain.MessageImage,
		ImageURI:   imageURI,
		SenderID:   senderID,
		SenderName: senderName,
	})
}

func (s *ChatService) SendAudio(ctx context.Context, chatID, senderID, senderName, audioURL string) (domain.Message, error) {
	if audioURL == "" {
		return domain.Message{}, domain.NewValidationError(map[string]string{"audioURL": "required"})
	}
	return s.send(ctx, chatID, domain.Message{
		Type:       domain.MessageAudio,
		AudioURL:   audioURL,
		SenderID:   senderID,
		SenderName: senderName,
	})
}

func (s *ChatService) send(ctx context.Context, chatID string, m domain.Message) (domain.Message, error) {
	if s.Now != nil {
		m.CreatedAt = s.Now().UTC()
	}
	return s.Store.AppendMessage(ctx, chatID, m)
}

func (s *ChatService) Delete(ctx context.Context, chatID, messageID string) error {
	return s.Store.DeleteMessage(ctx, chatID, messageID)
}

// History returns the chat's messages sorted ascending by creation time.
func (s *ChatService) History(ctx context.Context, chatID string) ([]domain.Message, error) {
	return s.Store.Messages(ctx, chatID)
}

// LastMessage is the list-view preview read path, keyed by chat id alone.
func (s *ChatService) LastMessage(ctx context.Context, chatID string) (domain.LastMessage, bool, error) {
	return s.Store.LastMessage(ctx, chatID)
}

// Watch streams the full message list on the polling schedule until the
// returned cancel runs.
func (s *ChatService) Watch(chatID string, fn func([]domain.Message)) func() {
	return s.Store.SubscribeMessages(chatID, fn)
}
