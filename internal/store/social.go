package store

import (
	"context"
	"time"

	"chatdata/internal/domain"
)

// AddFriendRequest creates a pending request in the recipient's list. If a
// request from the same sender is already pending the call is a benign no-op
// and returns nil; duplicate sends are expected from the UI.
func (s *Store) AddFriendRequest(ctx context.Context, fromUID, toUID, fromUsername string) (*domain.FriendRequest, error) {
	if fromUID == "" || toUID == "" {
		return nil, domain.NewValidationError(map[string]string{"uid": "sender and recipient required"})
	}

	s.requests.mu.Lock()
	defer s.requests.mu.Unlock()
	if err := loadMap(ctx, s, &s.requests); err != nil {
		return nil, err
	}
	for _, r := range s.requests.items[toUID] {
		if r.FromUID == fromUID {
			return nil, nil
		}
	}
	req := domain.FriendRequest{
		ID:           newID("request"),
		FromUID:      fromUID,
		FromUsername: fromUsername,
		Status:       domain.FriendRequestPending,
		CreatedAt:    time.Now().UTC(),
	}
	s.requests.items[toUID] = append(s.requests.items[toUID], req)
	flushMap(ctx, s, &s.requests)
	return &req, nil
}

// RemoveFriendRequest deletes the request by id. An absent id is a silent
// no-op.
func (s *Store) RemoveFriendRequest(ctx context.Context, uid, requestID string) error {
	s.requests.mu.Lock()
	defer s.requests.mu.Unlock()
	if err := loadMap(ctx, s, &s.requests); err != nil {
		return err
	}
	list := s.requests.items[uid]
	filtered := list[:0:0]
	for _, r := range list {
		if r.ID != requestID {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(list) {
		return nil
	}
	s.requests.items[uid] = filtered
	flushMap(ctx, s, &s.requests)
	return nil
}

// FriendRequests returns the recipient's pending requests in arrival order.
func (s *Store) FriendRequests(ctx context.Context, uid string) ([]domain.FriendRequest, error) {
	s.requests.mu.Lock()
	defer s.requests.mu.Unlock()
	if err := loadMap(ctx, s, &s.requests); err != nil {
		return nil, err
	}
	return append([]domain.FriendRequest(nil), s.requests.items[uid]...), nil
}

// AcceptFriendRequest resolves the request addressed to toUID: both users
// gain each other in their friends sets, then the request is removed.
//
// Both friend-set writes happen under the users lock and the users map is
// flushed once, so the symmetry invariant cannot be broken by a crash
// between the two writes. The request is removed last; a crash before that
// leaves an accepted-but-present request, and re-accepting is idempotent
// because the friend union already holds.
func (s *Store) AcceptFriendRequest(ctx context.Context, toUID, requestID string) (domain.FriendRequest, error) {
	s.requests.mu.Lock()
	if err := loadMap(ctx, s, &s.requests); err != nil {
		s.requests.mu.Unlock()
		return domain.FriendRequest{}, err
	}
	var req domain.FriendRequest
	found := false
	for _, r := range s.requests.items[toUID] {
		if r.ID == requestID {
			req = r
			found = true
			break
		}
	}
	s.requests.mu.Unlock()
	if !found {
		return domain.FriendRequest{}, domain.ErrNotFound
	}

	s.users.mu.Lock()
	if err := loadMap(ctx, s, &s.users); err != nil {
		s.users.mu.Unlock()
		return domain.FriendRequest{}, err
	}
	recipient, okTo := s.users.items[toUID]
	sender, okFrom := s.users.items[req.FromUID]
	if !okTo || !okFrom {
		s.users.mu.Unlock()
		return domain.FriendRequest{}, domain.ErrNotFound
	}
	recipient.Friends = addToSet(recipient.Friends, req.FromUID)
	sender.Friends = addToSet(sender.Friends, toUID)
	s.users.items[toUID] = recipient
	s.users.items[req.FromUID] = sender
	flushMap(ctx, s, &s.users)
	s.users.mu.Unlock()

	if err := s.RemoveFriendRequest(ctx, toUID, requestID); err != nil {
		return domain.FriendRequest{}, err
	}
	return req, nil
}

func addToSet(set []string, member string) []string {
	for _, m := range set {
		if m == member {
			return set
		}
	}
	return append(set, member)
}
