package service

import (
	"context"
	"strings"

	"chatdata/internal/domain"
)

type UserDirectoryStore interface {
	UserByID(ctx context.Context, uid string) (domain.UserWithPassword, error)
	UserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error)
	UserByUsercode(ctx context.Context, usercode string) (domain.UserWithPassword, error)
	UpdateUser(ctx context.Context, uid string, mutate func(*domain.UserWithPassword)) (domain.UserWithPassword, error)
}

// UsersService exposes profile reads and edits. Everything it returns is the
// public shape; the credential stays behind the store interface.
type UsersService struct {
	Store UserDirectoryStore
}

func (s *UsersService) Get(ctx context.Context, uid string) (domain.User, error) {
	u, err := s.Store.UserByID(ctx, uid)
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

// ByUsername is the contact-search path for exact username lookup.
func (s *UsersService) ByUsername(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{"username": "required"})
	}
	u, err := s.Store.UserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

// ByUsercode is the contact-search path for the numeric discriminator shown
// on the profile screen.
func (s *UsersService) ByUsercode(ctx context.Context, usercode string) (domain.User, error) {
	usercode = strings.TrimSpace(usercode)
	if usercode == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{"usercode": "required"})
	}
	u, err := s.Store.UserByUsercode(ctx, usercode)
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

// UpdateProfile replaces the display name and photo reference. An empty
// photoURL clears the avatar.
func (s *UsersService) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) (domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.User{}, domain.NewValidationError(map[string]string{"displayName": "required"})
	}
	u, err := s.Store.UpdateUser(ctx, uid, func(u *domain.UserWithPassword) {
		u.DisplayName = displayName
		u.PhotoURL = photoURL
	})
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}
