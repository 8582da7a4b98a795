package service

import (
	"context"
	"fmt"
	"log/slog"

	"chatdata/internal/domain"
)

type FriendGraphStore interface {
	AddFriendRequest(ctx context.Context, fromUID, toUID, fromUsername string) (*domain.FriendRequest, error)
	RemoveFriendRequest(ctx context.Context, uid, requestID string) error
	FriendRequests(ctx context.Context, uid string) ([]domain.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, toUID, requestID string) (domain.FriendRequest, error)
	SubscribeFriendRequests(uid string, fn func([]domain.FriendRequest)) func()
}

type FriendUsersStore interface {
	UserByID(ctx context.Context, uid string) (domain.UserWithPassword, error)
}

type FriendNotifier interface {
	Notify(ctx context.Context, uid, ntype, text string, data map[string]string) (domain.Notification, error)
}

// FriendsService drives the friend-request lifecycle and fans notifications
// out to the affected users.
type FriendsService struct {
	Graph         FriendGraphStore
	Users         FriendUsersStore
	Notifications FriendNotifier // optional
	Logger        *slog.Logger
}

// Request sends a friend request from fromUID to toUID. A duplicate pending
// request returns nil without error; the UI treats both outcomes the same.
func (s *FriendsService) Request(ctx context.Context, fromUID, toUID string) (*domain.FriendRequest, error) {
	if fromUID == toUID {
		return nil, domain.NewValidationError(map[string]string{"uid": "cannot friend yourself"})
	}

	sender, err := s.Users.UserByID(ctx, fromUID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.UserByID(ctx, toUID); err != nil {
		return nil, err
	}

	req, err := s.Graph.AddFriendRequest(ctx, fromUID, toUID, sender.Username)
	if err != nil || req == nil {
		return req, err
	}

	s.notify(ctx, toUID, "friend_request",
		fmt.Sprintf("%s sent you a friend request", sender.Username),
		map[string]string{"fromUid": fromUID, "requestId": req.ID})
	return req, nil
}

// Accept resolves the request addressed to uid and tells the requester.
func (s *FriendsService) Accept(ctx context.Context, uid, requestID string) error {
	req, err := s.Graph.AcceptFriendRequest(ctx, uid, requestID)
	if err != nil {
		return err
	}

	accepter, err := s.Users.UserByID(ctx, uid)
	if err != nil {
		return err
	}
	s.notify(ctx, req.FromUID, "friend_accepted",
		fmt.Sprintf("%s accepted your friend request", accepter.Username),
		map[string]string{"uid": uid})
	return nil
}

// Decline removes the request without touching either friends set.
func (s *FriendsService) Decline(ctx context.Context, uid, requestID string) error {
	return s.Graph.RemoveFriendRequest(ctx, uid, requestID)
}

// List returns uid's pending incoming requests.
func (s *FriendsService) List(ctx context.Context, uid string) ([]domain.FriendRequest, error) {
	return s.Graph.FriendRequests(ctx, uid)
}

// Friends resolves uid's friends set to public profiles. A dangling uid in
// the set is skipped rather than failing the whole listing.
func (s *FriendsService) Friends(ctx context.Context, uid string) ([]domain.User, error) {
	u, err := s.Users.UserByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(u.Friends))
	for _, fid := range u.Friends {
		f, err := s.Users.UserByID(ctx, fid)
		if err != nil {
			continue
		}
		out = append(out, f.User)
	}
	return out, nil
}

// Watch subscribes to uid's incoming request list.
func (s *FriendsService) Watch(uid string, fn func([]domain.FriendRequest)) func() {
	return s.Graph.SubscribeFriendRequests(uid, fn)
}

// notify is best-effort: a failed or absent notification feed never fails
// the graph operation that triggered it.
func (s *FriendsService) notify(ctx context.Context, uid, ntype, text string, data map[string]string) {
	if s.Notifications == nil {
		return
	}
	if _, err := s.Notifications.Notify(ctx, uid, ntype, text, data); err != nil && s.Logger != nil {
		s.Logger.Error("friend notification failed", "type", ntype, "uid", uid, "err", err)
	}
}
