package store

import (
	"context"
	"encoding/json"
	"fmt"

	"chatdata/internal/domain"
)

// SaveSession persists the signed-in identity under the currentUser key.
func (s *Store) SaveSession(ctx context.Context, sess domain.Session) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, keyCurrentUser, blob); err != nil {
		return fmt.Errorf("%w: save session: %v", domain.ErrPersistence, err)
	}
	return nil
}

// LoadSession restores the persisted session, reporting ok=false when
// signed out.
func (s *Store) LoadSession(ctx context.Context) (domain.Session, bool, error) {
	blob, ok, err := s.kv.Get(ctx, keyCurrentUser)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("%w: load session: %v", domain.ErrPersistence, err)
	}
	if !ok {
		return domain.Session{}, false, nil
	}
	var sess domain.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		return domain.Session{}, false, fmt.Errorf("%w: decode session: %v", domain.ErrPersistence, err)
	}
	return sess, true, nil
}

// ClearSession removes the persisted session.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, keyCurrentUser); err != nil {
		return fmt.Errorf("%w: clear session: %v", domain.ErrPersistence, err)
	}
	return nil
}
