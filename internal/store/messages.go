package store

import (
	"context"
	"sort"
	"time"

	"chatdata/internal/domain"
)

// AppendMessage stores m in the chat's message list and refreshes the
// last-message index. A missing id or timestamp is filled in.
func (s *Store) AppendMessage(ctx context.Context, chatID string, m domain.Message) (domain.Message, error) {
	if chatID == "" {
		return domain.Message{}, domain.NewValidationError(map[string]string{"chatId": "required"})
	}
	if m.ID == "" {
		m.ID = newID("msg")
	}
	if m.Type == "" {
		m.Type = domain.MessageText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	s.chats.mu.Lock()
	if err := loadMap(ctx, s, &s.chats); err != nil {
		s.chats.mu.Unlock()
		return domain.Message{}, err
	}
	s.chats.items[chatID] = append(s.chats.items[chatID], m)
	remaining := append([]domain.Message(nil), s.chats.items[chatID]...)
	flushMap(ctx, s, &s.chats)
	s.chats.mu.Unlock()

	if err := s.refreshLastMessage(ctx, chatID, remaining); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// DeleteMessage removes the message and recomputes the chat's last-message
// entry from what remains. Deleting an absent message is a no-op.
func (s *Store) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	s.chats.mu.Lock()
	if err := loadMap(ctx, s, &s.chats); err != nil {
		s.chats.mu.Unlock()
		return err
	}
	msgs := s.chats.items[chatID]
	filtered := msgs[:0:0]
	for _, m := range msgs {
		if m.ID != messageID {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == len(msgs) {
		s.chats.mu.Unlock()
		return nil
	}
	s.chats.items[chatID] = filtered
	remaining := append([]domain.Message(nil), filtered...)
	flushMap(ctx, s, &s.chats)
	s.chats.mu.Unlock()

	return s.refreshLastMessage(ctx, chatID, remaining)
}

// Messages returns the chat's messages sorted ascending by creation time.
// Messages sharing a timestamp keep arrival order.
func (s *Store) Messages(ctx context.Context, chatID string) ([]domain.Message, error) {
	s.chats.mu.Lock()
	defer s.chats.mu.Unlock()
	if err := loadMap(ctx, s, &s.chats); err != nil {
		return nil, err
	}
	out := append([]domain.Message(nil), s.chats.items[chatID]...)
	sortMessages(out)
	return out, nil
}

// LastMessage reads the derived preview entry, ok=false when the chat has no
// messages.
func (s *Store) LastMessage(ctx context.Context, chatID string) (domain.LastMessage, bool, error) {
	s.last.mu.Lock()
	defer s.last.mu.Unlock()
	if err := loadMap(ctx, s, &s.last); err != nil {
		return domain.LastMessage{}, false, err
	}
	lm, ok := s.last.items[chatID]
	return lm, ok, nil
}

// refreshLastMessage recomputes the index entry from the given message list:
// the newest message by CreatedAt, or absent when the list is empty.
func (s *Store) refreshLastMessage(ctx context.Context, chatID string, msgs []domain.Message) error {
	s.last.mu.Lock()
	defer s.last.mu.Unlock()
	if err := loadMap(ctx, s, &s.last); err != nil {
		return err
	}
	tail, ok := newestMessage(msgs)
	if !ok {
		delete(s.last.items, chatID)
	} else {
		s.last.items[chatID] = domain.LastMessage{
			Text:       tail.Text,
			Timestamp:  tail.CreatedAt,
			SenderID:   tail.SenderID,
			SenderName: tail.SenderName,
		}
	}
	flushMap(ctx, s, &s.last)
	return nil
}

func newestMessage(msgs []domain.Message) (domain.Message, bool) {
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	tail := msgs[0]
	for _, m := range msgs[1:] {
		if !m.CreatedAt.Before(tail.CreatedAt) {
			tail = m
		}
	}
	return tail, true
}

func sortMessages(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
